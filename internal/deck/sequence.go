package deck

import (
	"sort"
	"time"
)

// StepKind is what the participant UI must do before showing the next
// slide: advance plainly, play a wine or section transition first, or hand
// off to the completion view.
type StepKind int

const (
	StepAdvance StepKind = iota
	StepWineTransition
	StepSectionTransition
	StepComplete
)

func (k StepKind) String() string {
	switch k {
	case StepAdvance:
		return "advance"
	case StepWineTransition:
		return "wine_transition"
	case StepSectionTransition:
		return "section_transition"
	case StepComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Delays the sequencer reports alongside each step. The engine never
// sleeps; callers schedule the animation and advance after the delay.
const (
	WineTransitionDelay    = 2500 * time.Millisecond
	SectionTransitionDelay = 1200 * time.Millisecond
	AdvanceDebounce        = 150 * time.Millisecond
)

// SequenceEntry is one stop of the participant traversal: a slide, the
// wine it plays under, and its playback-resolved section. The package
// intro has an empty WineID so entering the first wine counts as a wine
// change.
type SequenceEntry struct {
	Slide         Slide
	WineID        string
	Section       SectionType
	PackageIntro  bool
	lastOfSection bool
}

// BuildSequence flattens a package into the full ordered slide list a
// participant traverses: the package intro (if any) first, then each wine
// by ascending position as intro, deep dive, ending per the proportional
// classifier. Stored transition slides are filtered out; transitions are
// synthesized by the traversal itself.
func BuildSequence(wines []Wine, slides []Slide) []SequenceEntry {
	sortedWines := append([]Wine(nil), wines...)
	sort.Slice(sortedWines, func(i, j int) bool {
		return sortedWines[i].Position < sortedWines[j].Position
	})

	var intro *Slide
	byWine := make(map[string][]Slide)
	for _, s := range slides {
		if s.Type == SlideTransition {
			continue
		}
		if intro == nil && IsPackageIntro(s) {
			cp := s
			intro = &cp
			continue
		}
		byWine[s.WineID] = append(byWine[s.WineID], s)
	}

	var out []SequenceEntry
	if intro != nil {
		out = append(out, SequenceEntry{
			Slide:        *intro,
			Section:      SectionIntro,
			PackageIntro: true,
		})
	}

	for _, w := range sortedWines {
		classified := Classify(byWine[w.ID])
		for i, cs := range classified {
			last := i == len(classified)-1 || classified[i+1].Section != cs.Section
			out = append(out, SequenceEntry{
				Slide:         cs.Slide,
				WineID:        w.ID,
				Section:       cs.Section,
				lastOfSection: last,
			})
		}
	}
	return out
}

// Step is the outcome of a forward navigation: what kind of move it was,
// how long the UI should hold before landing, and the entry landed on
// (nil once the traversal completes).
type Step struct {
	Kind  StepKind
	Delay time.Duration
	Entry *SequenceEntry
}

// SectionProgress is the participant's progress through one section of the
// current wine.
type SectionProgress struct {
	Section   SectionType `json:"section"`
	Completed int         `json:"completed"`
	Total     int         `json:"total"`
	Fraction  float64     `json:"fraction"`
}

// Traversal drives a participant through a built sequence. A slide counts
// as completed only once it has been visited and exited forward; backing
// into a slide un-completes it. The playback sequencer only reads deck
// data, it never mutates slides.
type Traversal struct {
	entries    []SequenceEntry
	index      int
	completed  map[int]bool
	onComplete func()
	done       bool
}

// NewTraversal starts at the first entry. onComplete fires once, when
// navigation moves past the last slide; it is the handoff to the
// completion/analytics view.
func NewTraversal(entries []SequenceEntry, onComplete func()) *Traversal {
	return &Traversal{
		entries:    entries,
		completed:  make(map[int]bool),
		onComplete: onComplete,
	}
}

// Current returns the entry under the cursor.
func (t *Traversal) Current() (SequenceEntry, bool) {
	if len(t.entries) == 0 || t.index >= len(t.entries) {
		return SequenceEntry{}, false
	}
	return t.entries[t.index], true
}

// Index returns the cursor position.
func (t *Traversal) Index() int { return t.index }

// Done reports whether the traversal has moved past the last slide.
func (t *Traversal) Done() bool { return t.done }

// Next moves forward. Crossing into a different wine reports a wine
// transition; finishing a section of the same wine reports a section
// transition; anything else advances after a short debounce. Moving past
// the last slide completes the traversal and invokes the completion
// handler.
func (t *Traversal) Next() Step {
	if t.done || len(t.entries) == 0 {
		return Step{Kind: StepComplete}
	}

	cur := t.entries[t.index]
	t.completed[t.index] = true

	if t.index == len(t.entries)-1 {
		t.done = true
		if t.onComplete != nil {
			t.onComplete()
		}
		return Step{Kind: StepComplete}
	}

	t.index++
	next := &t.entries[t.index]

	switch {
	case next.WineID != cur.WineID:
		return Step{Kind: StepWineTransition, Delay: WineTransitionDelay, Entry: next}
	case next.Section != cur.Section && cur.lastOfSection:
		return Step{Kind: StepSectionTransition, Delay: SectionTransitionDelay, Entry: next}
	default:
		return Step{Kind: StepAdvance, Delay: AdvanceDebounce, Entry: next}
	}
}

// Previous moves back immediately, with no transition. The slide backed
// into is removed from the completed set since the participant is viewing
// it again.
func (t *Traversal) Previous() (SequenceEntry, bool) {
	if t.done {
		// Backing out of the completion view returns to the last slide.
		t.done = false
		delete(t.completed, t.index)
		return t.entries[t.index], true
	}
	if t.index == 0 {
		return SequenceEntry{}, false
	}
	t.index--
	delete(t.completed, t.index)
	return t.entries[t.index], true
}

// Progress reports per-section completion for the wine under the cursor.
// A section reads 100% only once its last slide has been completed, not
// merely reached.
func (t *Traversal) Progress() []SectionProgress {
	cur, ok := t.Current()
	if !ok || cur.PackageIntro {
		return nil
	}

	totals := make(map[SectionType]int)
	completed := make(map[SectionType]int)
	for i, e := range t.entries {
		if e.WineID != cur.WineID {
			continue
		}
		totals[e.Section]++
		if t.completed[i] {
			completed[e.Section]++
		}
	}

	var out []SectionProgress
	for _, sec := range []SectionType{SectionIntro, SectionDeepDive, SectionEnding} {
		total := totals[sec]
		if total == 0 {
			continue
		}
		done := completed[sec]
		out = append(out, SectionProgress{
			Section:   sec,
			Completed: done,
			Total:     total,
			Fraction:  float64(done) / float64(total),
		})
	}
	return out
}
