package deck

import (
	"errors"
	"fmt"
)

// Direction of a single-step move within a wine.
type Direction string

const (
	MoveUp   Direction = "up"
	MoveDown Direction = "down"
)

// ParseDirection validates a direction received over the wire.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case MoveUp, MoveDown:
		return Direction(s), nil
	default:
		return "", fmt.Errorf(`invalid direction %q (must be "up" or "down")`, s)
	}
}

// Reasons a move is refused. These are user-facing: a blocked action must
// explain why it was refused, not just that it failed.
var (
	ErrSlideNotFound = errors.New("slide not found in this wine")
	ErrWelcomePinned = errors.New("the welcome slide opens its wine and cannot be moved")
	ErrAboveWelcome  = errors.New("slides cannot be moved above the welcome slide")
	ErrFirstInWine   = errors.New("slide is already the first of its wine")
	ErrLastInWine    = errors.New("slide is already the last of its wine")
)

// sectionChange records that a move carried a slide into a different
// authored section, which must be persisted alongside the position diff.
type sectionChange struct {
	SlideID string
	Section SectionType
}

// movePlan is the outcome of planning a reorder: the wine's full new order
// (renumbered), the minimal position diff, and an optional section change
// when the slide crossed a section boundary.
type movePlan struct {
	order   []Slide
	diff    []PositionUpdate
	section *sectionChange
}

// planMove computes the whole-wine order after moving slideID one step in
// dir. Planning happens over the rendered order (sections concatenated),
// so a move from the head of one section lands at the tail of the previous
// section and the slide adopts that section.
func planMove(wineSlides []Slide, slideID string, dir Direction) (movePlan, error) {
	ordered := GroupBySection(wineSlides).Ordered()

	i := indexOf(ordered, slideID)
	if i < 0 {
		return movePlan{}, ErrSlideNotFound
	}

	if IsWelcome(ordered[i]) {
		// Bounds would already stop an "up" from index 0; the pin rule is
		// what refuses the rest, with a reason the host can act on.
		return movePlan{}, ErrWelcomePinned
	}

	j := i - 1
	if dir == MoveDown {
		j = i + 1
	}
	if j < 0 {
		return movePlan{}, ErrFirstInWine
	}
	if j >= len(ordered) {
		return movePlan{}, ErrLastInWine
	}
	if j == 0 && IsWelcome(ordered[0]) {
		return movePlan{}, ErrAboveWelcome
	}

	displaced := ordered[j]
	newOrder := reinsert(ordered, i, j)
	return finishPlan(newOrder, ordered[i], displaced)
}

// planDrop computes the whole-wine order after dropping activeID onto
// overID (drag-and-drop). Same contract as planMove: renumber the whole
// list, then diff.
func planDrop(wineSlides []Slide, activeID, overID string) (movePlan, error) {
	if activeID == overID {
		return movePlan{}, nil
	}
	ordered := GroupBySection(wineSlides).Ordered()

	i := indexOf(ordered, activeID)
	if i < 0 {
		return movePlan{}, ErrSlideNotFound
	}
	j := indexOf(ordered, overID)
	if j < 0 {
		return movePlan{}, ErrSlideNotFound
	}

	if IsWelcome(ordered[i]) {
		return movePlan{}, ErrWelcomePinned
	}
	if j == 0 && IsWelcome(ordered[0]) {
		return movePlan{}, ErrAboveWelcome
	}

	displaced := ordered[j]
	newOrder := reinsert(ordered, i, j)
	return finishPlan(newOrder, ordered[i], displaced)
}

func finishPlan(newOrder []Slide, moved, displaced Slide) (movePlan, error) {
	plan := movePlan{}

	// Crossing a section boundary re-homes the slide in the section it
	// landed in; otherwise the editor's grouped rendering would undo the
	// move visually.
	if editorSection(moved) != editorSection(displaced) {
		sec := editorSection(displaced)
		plan.section = &sectionChange{SlideID: moved.ID, Section: sec}
		for k := range newOrder {
			if newOrder[k].ID == moved.ID {
				newOrder[k].Section = sec
				break
			}
		}
	}

	renumbered, diff, err := Renumber(newOrder)
	if err != nil {
		return movePlan{}, err
	}
	plan.order = renumbered
	plan.diff = diff
	return plan, nil
}

func indexOf(slides []Slide, id string) int {
	for i, s := range slides {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// reinsert removes the element at i and inserts it at j, shifting
// everything in between.
func reinsert(slides []Slide, i, j int) []Slide {
	out := make([]Slide, 0, len(slides))
	out = append(out, slides[:i]...)
	out = append(out, slides[i+1:]...)

	moved := slides[i]
	out = append(out, Slide{})
	copy(out[j+1:], out[j:])
	out[j] = moved
	return out
}
