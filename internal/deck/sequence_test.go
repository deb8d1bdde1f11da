package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoWinePackage() ([]Wine, []Slide) {
	wines := []Wine{
		{ID: "w2", PackageID: "p1", Name: "Barbaresco", Position: 2},
		{ID: "w1", PackageID: "p1", Name: "Barolo", Position: 1},
	}
	slides := []Slide{
		// Package intro is stored against the first wine but traverses
		// before everything.
		{ID: "pkg-intro", WineID: "w1", Position: 5, Type: SlideInterlude,
			Payload: InterludePayload{Title: "Tonight's lineup", IsPackageIntro: true}},

		{ID: "w1-a", WineID: "w1", Position: 10, Type: SlideInterlude, Section: SectionIntro,
			Payload: InterludePayload{Title: "Welcome", IsWelcome: true}},
		{ID: "w1-b", WineID: "w1", Position: 20, Type: SlideQuestion},
		{ID: "w1-c", WineID: "w1", Position: 30, Type: SlideQuestion},

		// A legacy stored transition: filtered out of the traversal.
		{ID: "w1-t", WineID: "w1", Position: 25, Type: SlideTransition},

		{ID: "w2-a", WineID: "w2", Position: 10, Type: SlideInterlude, Section: SectionIntro,
			Payload: InterludePayload{Title: "Welcome", IsWelcome: true}},
		{ID: "w2-b", WineID: "w2", Position: 20, Type: SlideMedia},
	}
	return wines, slides
}

func TestBuildSequence(t *testing.T) {
	wines, slides := twoWinePackage()
	seq := BuildSequence(wines, slides)

	var ids []string
	for _, e := range seq {
		ids = append(ids, e.Slide.ID)
	}
	// Package intro first, then wine 1 (by wine position, not map order),
	// then wine 2. The stored transition never appears.
	assert.Equal(t, []string{"pkg-intro", "w1-a", "w1-b", "w1-c", "w2-a", "w2-b"}, ids)

	assert.True(t, seq[0].PackageIntro)
	assert.Empty(t, seq[0].WineID, "the package intro is owned by no wine's grouping")

	// Wine 1 has 3 traversable slides: classifier splits 2/1/0.
	assert.Equal(t, SectionIntro, seq[1].Section)
	assert.Equal(t, SectionIntro, seq[2].Section)
	assert.Equal(t, SectionDeepDive, seq[3].Section)
}

func TestTraversalTransitions(t *testing.T) {
	wines, slides := twoWinePackage()
	seq := BuildSequence(wines, slides)
	tr := NewTraversal(seq, nil)

	// Package intro -> first wine: wine transition.
	step := tr.Next()
	assert.Equal(t, StepWineTransition, step.Kind)
	assert.Equal(t, WineTransitionDelay, step.Delay)
	require.NotNil(t, step.Entry)
	assert.Equal(t, "w1-a", step.Entry.Slide.ID)

	// Within wine 1 intro: plain advance with the short debounce.
	step = tr.Next()
	assert.Equal(t, StepAdvance, step.Kind)
	assert.Equal(t, AdvanceDebounce, step.Delay)

	// Last intro slide -> deep dive: section transition.
	step = tr.Next()
	assert.Equal(t, StepSectionTransition, step.Kind)
	assert.Equal(t, SectionTransitionDelay, step.Delay)
	assert.Equal(t, "w1-c", step.Entry.Slide.ID)

	// Wine 1 -> wine 2: wine transition again.
	step = tr.Next()
	assert.Equal(t, StepWineTransition, step.Kind)
	assert.Equal(t, "w2-a", step.Entry.Slide.ID)
}

func TestTraversalCompletion(t *testing.T) {
	wines, slides := twoWinePackage()
	seq := BuildSequence(wines, slides)

	completions := 0
	tr := NewTraversal(seq, func() { completions++ })

	for i := 0; i < len(seq)-1; i++ {
		step := tr.Next()
		require.NotEqual(t, StepComplete, step.Kind, "step %d", i)
	}

	// Moving past the last slide hands off to the completion view.
	step := tr.Next()
	assert.Equal(t, StepComplete, step.Kind)
	assert.True(t, tr.Done())
	assert.Equal(t, 1, completions)

	// Further forward navigation stays complete without firing again.
	assert.Equal(t, StepComplete, tr.Next().Kind)
	assert.Equal(t, 1, completions)
}

func TestTraversalPrevious(t *testing.T) {
	wines, slides := twoWinePackage()
	tr := NewTraversal(BuildSequence(wines, slides), nil)

	_, ok := tr.Previous()
	assert.False(t, ok, "cannot back out of the first slide")

	tr.Next()
	tr.Next()
	cur, _ := tr.Current()
	require.Equal(t, "w1-b", cur.Slide.ID)

	// Previous is immediate: no transition, and the slide backed into is
	// no longer completed.
	entry, ok := tr.Previous()
	require.True(t, ok)
	assert.Equal(t, "w1-a", entry.Slide.ID)

	progress := tr.Progress()
	for _, p := range progress {
		if p.Section == SectionIntro {
			assert.Equal(t, 0, p.Completed, "backing in un-completes the slide")
		}
	}
}

func TestTraversalProgress(t *testing.T) {
	wines, slides := twoWinePackage()
	tr := NewTraversal(BuildSequence(wines, slides), nil)

	// No per-wine progress while on the package intro.
	assert.Nil(t, tr.Progress())

	tr.Next() // onto w1-a
	progress := tr.Progress()
	require.Len(t, progress, 2, "wine 1 has intro and deep dive sections")
	assert.Equal(t, SectionIntro, progress[0].Section)
	assert.Equal(t, 0, progress[0].Completed)
	assert.Equal(t, 2, progress[0].Total)

	tr.Next() // onto w1-b, w1-a completed
	progress = tr.Progress()
	assert.Equal(t, 1, progress[0].Completed)
	assert.InDelta(t, 0.5, progress[0].Fraction, 1e-9)

	// Standing on the last intro slide: the section is reached but not
	// complete until it is exited forward.
	assert.Less(t, progress[0].Fraction, 1.0)

	tr.Next() // onto w1-c, intro fully exited
	progress = tr.Progress()
	assert.InDelta(t, 1.0, progress[0].Fraction, 1e-9)
}
