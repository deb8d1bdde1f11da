package deck

import "math"

// Share of a wine's deck assigned to the intro and deep-dive sections when
// playback derives sections proportionally. The remainder is the ending.
// Tests pin these values; change them and the progress bars change shape.
const (
	introShare    = 0.4
	deepDiveShare = 0.4
)

// SectionBounds are the computed sizes of a wine's three playback sections.
type SectionBounds struct {
	Intro    int
	DeepDive int
	Ending   int
}

// SplitCounts computes the proportional section sizes for n slides.
// Ending absorbs the remainder and is never negative.
func SplitCounts(n int) SectionBounds {
	if n <= 0 {
		return SectionBounds{}
	}
	intro := int(math.Ceil(float64(n) * introShare))
	deep := int(math.Ceil(float64(n) * deepDiveShare))
	if deep > n-intro {
		deep = n - intro
	}
	return SectionBounds{Intro: intro, DeepDive: deep, Ending: n - intro - deep}
}

// SectionedSlide pairs a slide with its section as resolved for playback,
// which may differ from the authored metadata.
type SectionedSlide struct {
	Slide   Slide
	Section SectionType
}

// Classify assigns playback sections to a single wine's slides using the
// proportional split over position order. Stored section metadata is
// deliberately ignored here: live traversal needs a consistent three-way
// split even when authoring metadata is sparse or inconsistent between
// wines. The editor groups by stored metadata instead (GroupBySection).
func Classify(wineSlides []Slide) []SectionedSlide {
	sorted := SortByPosition(wineSlides)
	bounds := SplitCounts(len(sorted))

	out := make([]SectionedSlide, len(sorted))
	for i, s := range sorted {
		var sec SectionType
		switch {
		case i < bounds.Intro:
			sec = SectionIntro
		case i < bounds.Intro+bounds.DeepDive:
			sec = SectionDeepDive
		default:
			sec = SectionEnding
		}
		out[i] = SectionedSlide{Slide: s, Section: sec}
	}
	return out
}

// SectionGroups is the author-time view of a wine's deck, grouped strictly
// by stored section metadata.
type SectionGroups struct {
	Intro    []Slide
	DeepDive []Slide
	Ending   []Slide
}

// GroupBySection groups a wine's slides by their stored section, each group
// ascending by position and the welcome slide first in intro. Anything
// unrecognized or unset falls into deep_dive; the host is expected to set
// sections explicitly in the editor.
func GroupBySection(wineSlides []Slide) SectionGroups {
	var g SectionGroups
	for _, s := range SortByPosition(wineSlides) {
		switch s.Section {
		case SectionIntro:
			g.Intro = append(g.Intro, s)
		case SectionEnding:
			g.Ending = append(g.Ending, s)
		default:
			g.DeepDive = append(g.DeepDive, s)
		}
	}

	// Pin the welcome slide to the head of intro even if its raw position
	// has drifted behind a sibling's.
	for i, s := range g.Intro {
		if IsWelcome(s) {
			if i > 0 {
				welcome := g.Intro[i]
				copy(g.Intro[1:i+1], g.Intro[0:i])
				g.Intro[0] = welcome
			}
			break
		}
	}
	return g
}

// Ordered returns the rendered order of the groups: intro, deep dive,
// ending. This holds regardless of raw storage order.
func (g SectionGroups) Ordered() []Slide {
	out := make([]Slide, 0, len(g.Intro)+len(g.DeepDive)+len(g.Ending))
	out = append(out, g.Intro...)
	out = append(out, g.DeepDive...)
	out = append(out, g.Ending...)
	return out
}

// editorSection resolves the section a slide belongs to in the editor's
// grouping: the stored value, or deep_dive when unset or unrecognized.
func editorSection(s Slide) SectionType {
	switch s.Section {
	case SectionIntro, SectionDeepDive, SectionEnding:
		return s.Section
	default:
		return SectionDeepDive
	}
}
