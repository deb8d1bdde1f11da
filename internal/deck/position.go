package deck

import "fmt"

// positionStep is the gap left between consecutive positions so a host can
// slot a slide in manually without renumbering the whole wine.
const positionStep = 10

// PositionUpdate is one entry of a reorder diff: the slide and the position
// it must be persisted at.
type PositionUpdate struct {
	SlideID  string `json:"slideId"`
	Position int    `json:"position"`
}

// PositionConflictError reports two slides of the same wine landing on the
// same position. It is a local validation failure before a batch save, or
// a programming bug when raised after a renumber.
type PositionConflictError struct {
	WineID   string
	Position int
	SlideIDs [2]string
}

func (e *PositionConflictError) Error() string {
	return fmt.Sprintf("position conflict in wine %s: slides %s and %s both at position %d",
		e.WineID, e.SlideIDs[0], e.SlideIDs[1], e.Position)
}

// NextPosition returns the position for a slide appended to a wine: the
// base step for an empty wine, otherwise the next multiple of the step
// above the current maximum.
func NextPosition(wineSlides []Slide) int {
	if len(wineSlides) == 0 {
		return positionStep
	}
	max := wineSlides[0].Position
	for _, s := range wineSlides[1:] {
		if s.Position > max {
			max = s.Position
		}
	}
	return (max + positionStep) / positionStep * positionStep
}

// Renumber assigns clean gap-spaced positions to a whole-wine slide list in
// its desired final order, returning the renumbered copy and the diff of
// slides whose position actually changed. Renumbering an already-renumbered
// list yields an empty diff.
//
// This is the only safe way to move a slide past others: swapping two
// positions risks a transient duplicate that the store's uniqueness
// constraint would reject.
func Renumber(ordered []Slide) ([]Slide, []PositionUpdate, error) {
	out := make([]Slide, len(ordered))
	copy(out, ordered)

	var diff []PositionUpdate
	for i := range out {
		pos := (i + 1) * positionStep
		if out[i].Position != pos {
			out[i].Position = pos
			diff = append(diff, PositionUpdate{SlideID: out[i].ID, Position: pos})
		}
	}

	// The formula cannot collide by construction; a conflict here means the
	// input held the same slide twice. Fail before anything is persisted.
	if err := ValidatePositions(out); err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		if seen[s.ID] {
			return nil, nil, fmt.Errorf("renumber: slide %s appears twice in wine %s", s.ID, s.WineID)
		}
		seen[s.ID] = true
	}

	return out, diff, nil
}

// ValidatePositions scans for duplicate positions within each wine. Used
// before a batch order save so a conflict is reported locally instead of
// bouncing off the store's unique index.
func ValidatePositions(slides []Slide) error {
	type key struct {
		wineID   string
		position int
	}
	seen := make(map[key]string, len(slides))
	for _, s := range slides {
		k := key{s.WineID, s.Position}
		if other, ok := seen[k]; ok {
			return &PositionConflictError{
				WineID:   s.WineID,
				Position: s.Position,
				SlideIDs: [2]string{other, s.ID},
			}
		}
		seen[k] = s.ID
	}
	return nil
}
