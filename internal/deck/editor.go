package deck

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EditorState tracks where the editor is in its load/edit/save cycle. The
// transitions are driven by fetch completion and save events; there is no
// ad-hoc "has this loaded yet" flag anywhere else.
type EditorState int

const (
	StateUnloaded EditorState = iota
	StateLoaded
	StateDirty
	StateSaving
)

func (s EditorState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotLoaded    = errors.New("editor: package not loaded")
	ErrSaveInFlight = errors.New("editor: a save is already in flight")
	// ErrStale is returned after a reorder failed to persist: local state was
	// rolled back, but further reorders are refused until Load reconciles
	// with the store. Blindly retrying a reorder against unknown server
	// state is how positions get lost.
	ErrStale            = errors.New("editor: state is stale, reload before editing")
	ErrSoleWelcomeSlide = errors.New("cannot delete the only welcome slide of this wine")
	// ErrWelcomeStripped guards the same invariant as ErrSoleWelcomeSlide
	// against edits: re-sectioning or re-titling a wine's only welcome slide
	// would leave the wine without one just as surely as deleting it.
	ErrWelcomeStripped = errors.New("this edit would leave the wine without a welcome slide")
)

// EditorData is the initial load for a package's editor session.
type EditorData struct {
	Package Package
	Wines   []Wine
	Slides  []Slide
}

// SlideUpdate is a partial content edit; nil fields are left unchanged.
type SlideUpdate struct {
	Section *SectionType
	Payload Payload
}

// WineUpdate is a partial wine edit; nil fields are left unchanged.
type WineUpdate struct {
	Name        *string
	Description *string
}

// Store is the externally-owned persistence the editor talks to. The
// transport behind it (HTTP, direct SQL) is not the editor's concern.
type Store interface {
	FetchEditorData(ctx context.Context, packageCode string) (*EditorData, error)
	CreateSlide(ctx context.Context, slide Slide) (Slide, error)
	UpdateSlide(ctx context.Context, slideID string, upd SlideUpdate) (Slide, error)
	DeleteSlide(ctx context.Context, slideID string) error
	// ReorderSlides applies a bulk position update for one wine. The store
	// side is expected to be atomic: a partial application would reintroduce
	// duplicate positions.
	ReorderSlides(ctx context.Context, wineID string, updates []PositionUpdate) error
	CreateWine(ctx context.Context, wine Wine) (Wine, error)
	UpdateWine(ctx context.Context, wineID string, upd WineUpdate) (Wine, error)
	DeleteWine(ctx context.Context, wineID string) error
}

// Editor maintains a package's slide list during an authoring session:
// a synced snapshot mirroring the store, and a local scratch copy that
// diverges until a save reconciles them. Structural moves are optimistic
// and persist immediately; content-position edits can accumulate and go
// out in one batched SaveOrder.
//
// All operations serialize through the editor's mutex, so a reorder always
// computes against the result of the previous local mutation, never a
// stale snapshot, even when callers overlap.
type Editor struct {
	mu    sync.Mutex
	store Store
	code  string

	state EditorState
	stale bool

	pkg    Package
	wines  []Wine
	synced []Slide
	local  []Slide
}

func NewEditor(store Store, packageCode string) *Editor {
	return &Editor{store: store, code: packageCode, state: StateUnloaded}
}

// Load fetches the package and resets both snapshots. It is also the only
// way back from a stale state.
func (e *Editor) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.store.FetchEditorData(ctx, e.code)
	if err != nil {
		return err
	}
	e.pkg = data.Package
	e.wines = append([]Wine(nil), data.Wines...)
	e.synced = append([]Slide(nil), data.Slides...)
	e.local = append([]Slide(nil), data.Slides...)
	e.state = StateLoaded
	e.stale = false
	return nil
}

func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Package() Package {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pkg
}

func (e *Editor) Wines() []Wine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Wine(nil), e.wines...)
}

// Slides returns a copy of the local scratch state.
func (e *Editor) Slides() []Slide {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Slide(nil), e.local...)
}

// WineSlides returns the local slides of one wine in rendered order.
func (e *Editor) WineSlides(wineID string) []Slide {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GroupBySection(slidesOfWine(e.local, wineID)).Ordered()
}

// MoveSlide moves a slide one step up or down within its wine, applies the
// result locally, and persists the diff immediately. Reorders are not
// batched into a later save on purpose: batched renumbering from stale
// state is a proven source of position collisions.
func (e *Editor) MoveSlide(ctx context.Context, slideID string, dir Direction) ([]PositionUpdate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slide, ok := e.findLocal(slideID)
	if !ok {
		return nil, ErrSlideNotFound
	}
	plan, err := planMove(slidesOfWine(e.local, slide.WineID), slideID, dir)
	if err != nil {
		return nil, err
	}
	return e.commitPlan(ctx, slide.WineID, plan)
}

// DropSlide applies a drag-and-drop of activeID onto overID, same
// renumber-the-whole-list-then-diff contract as MoveSlide.
func (e *Editor) DropSlide(ctx context.Context, activeID, overID string) ([]PositionUpdate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slide, ok := e.findLocal(activeID)
	if !ok {
		return nil, ErrSlideNotFound
	}
	plan, err := planDrop(slidesOfWine(e.local, slide.WineID), activeID, overID)
	if err != nil {
		return nil, err
	}
	if plan.order == nil {
		return nil, nil
	}
	return e.commitPlan(ctx, slide.WineID, plan)
}

// commitPlan applies a reorder plan optimistically and persists it. On
// persistence failure local state rolls back to the synced snapshot and
// the editor refuses further reorders until reloaded. Callers hold e.mu.
func (e *Editor) commitPlan(ctx context.Context, wineID string, plan movePlan) ([]PositionUpdate, error) {
	if err := e.ensureEditable(); err != nil {
		return nil, err
	}
	if len(plan.diff) == 0 && plan.section == nil {
		return nil, nil
	}

	before := append([]Slide(nil), e.local...)
	e.applyOrder(wineID, plan.order)

	if err := e.store.ReorderSlides(ctx, wineID, plan.diff); err != nil {
		e.local = before
		e.stale = true
		return nil, fmt.Errorf("reorder not saved, changes were undone: %w", err)
	}
	if plan.section != nil {
		sec := plan.section.Section
		if _, err := e.store.UpdateSlide(ctx, plan.section.SlideID, SlideUpdate{Section: &sec}); err != nil {
			e.local = before
			e.stale = true
			return nil, fmt.Errorf("reorder not saved, changes were undone: %w", err)
		}
	}

	// The persisted diff is now truth; fold it into the synced snapshot.
	e.synced = append([]Slide(nil), e.local...)
	return plan.diff, nil
}

// CreateSlide persists a new slide and mirrors it locally. Position is
// assigned by the allocator from the wine's current local slides.
func (e *Editor) CreateSlide(ctx context.Context, slide Slide) (Slide, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureEditable(); err != nil {
		return Slide{}, err
	}
	if slide.Position == 0 {
		slide.Position = NextPosition(slidesOfWine(e.local, slide.WineID))
	}
	created, err := e.store.CreateSlide(ctx, slide)
	if err != nil {
		return Slide{}, err
	}
	e.local = append(e.local, created)
	e.synced = append(e.synced, created)
	return created, nil
}

// UpdateSlide applies a content edit optimistically and persists it,
// reverting the local change when the store refuses.
func (e *Editor) UpdateSlide(ctx context.Context, slideID string, upd SlideUpdate) (Slide, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureEditable(); err != nil {
		return Slide{}, err
	}
	i := indexOf(e.local, slideID)
	if i < 0 {
		return Slide{}, ErrSlideNotFound
	}

	before := e.local[i]

	// An edit may not strip the wine's only welcome slide; that breaks the
	// same guarantee the delete guard protects.
	prospective := before
	if upd.Section != nil {
		prospective.Section = *upd.Section
	}
	if upd.Payload != nil {
		prospective.Payload = upd.Payload
	}
	if IsWelcome(before) && !IsWelcome(prospective) && !hasSpareWelcome(e.local, before.WineID, before.ID) {
		return Slide{}, ErrWelcomeStripped
	}

	if upd.Section != nil {
		e.local[i].Section = *upd.Section
	}
	if upd.Payload != nil {
		e.local[i].Payload = upd.Payload
	}

	updated, err := e.store.UpdateSlide(ctx, slideID, upd)
	if err != nil {
		e.local[i] = before
		return Slide{}, err
	}
	e.local[i] = updated
	if j := indexOf(e.synced, slideID); j >= 0 {
		e.synced[j] = updated
	}
	return updated, nil
}

// DeleteSlide removes a slide. A wine's only welcome slide is protected:
// the call is rejected locally and the store is never contacted.
func (e *Editor) DeleteSlide(ctx context.Context, slideID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureEditable(); err != nil {
		return err
	}
	i := indexOf(e.local, slideID)
	if i < 0 {
		return ErrSlideNotFound
	}
	target := e.local[i]

	if IsWelcome(target) && !hasSpareWelcome(e.local, target.WineID, target.ID) {
		return ErrSoleWelcomeSlide
	}

	before := append([]Slide(nil), e.local...)
	e.local = append(e.local[:i], e.local[i+1:]...)

	if err := e.store.DeleteSlide(ctx, slideID); err != nil {
		e.local = before
		return err
	}
	if j := indexOf(e.synced, slideID); j >= 0 {
		e.synced = append(e.synced[:j], e.synced[j+1:]...)
	}
	return nil
}

// CreateWine appends a wine to the package.
func (e *Editor) CreateWine(ctx context.Context, wine Wine) (Wine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureEditable(); err != nil {
		return Wine{}, err
	}
	if wine.Position == 0 {
		wine.Position = len(e.wines) + 1
	}
	created, err := e.store.CreateWine(ctx, wine)
	if err != nil {
		return Wine{}, err
	}
	e.wines = append(e.wines, created)
	return created, nil
}

// UpdateWine edits wine metadata.
func (e *Editor) UpdateWine(ctx context.Context, wineID string, upd WineUpdate) (Wine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureEditable(); err != nil {
		return Wine{}, err
	}
	updated, err := e.store.UpdateWine(ctx, wineID, upd)
	if err != nil {
		return Wine{}, err
	}
	for i := range e.wines {
		if e.wines[i].ID == wineID {
			e.wines[i] = updated
			break
		}
	}
	return updated, nil
}

// DeleteWine removes a wine; its slides cascade both locally and in the
// store.
func (e *Editor) DeleteWine(ctx context.Context, wineID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureEditable(); err != nil {
		return err
	}
	if err := e.store.DeleteWine(ctx, wineID); err != nil {
		return err
	}
	keep := func(slides []Slide) []Slide {
		out := slides[:0]
		for _, s := range slides {
			if s.WineID != wineID {
				out = append(out, s)
			}
		}
		return out
	}
	e.local = keep(e.local)
	e.synced = keep(e.synced)
	for i := range e.wines {
		if e.wines[i].ID == wineID {
			e.wines = append(e.wines[:i], e.wines[i+1:]...)
			break
		}
	}
	return nil
}

// SetSlidePosition records a local-only position edit for bulk session
// editing; nothing is persisted until SaveOrder.
func (e *Editor) SetSlidePosition(slideID string, position int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateUnloaded {
		return ErrNotLoaded
	}
	if e.stale {
		return ErrStale
	}
	i := indexOf(e.local, slideID)
	if i < 0 {
		return ErrSlideNotFound
	}
	e.local[i].Position = position
	e.state = StateDirty
	return nil
}

// SaveOrder persists accumulated local position edits in one batch. The
// batch is validated for duplicate positions before the store is contacted;
// a conflict aborts the save and names the wine. Given unchanged local
// state the recomputed diff is empty and SaveOrder is a no-op, so the
// save shortcut can be mashed safely - a save already in flight is refused
// rather than doubled.
func (e *Editor) SaveOrder(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateUnloaded {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	if e.state == StateSaving {
		e.mu.Unlock()
		return ErrSaveInFlight
	}
	// A failed reorder may still have applied server-side; a batch computed
	// from the rolled-back snapshot must not go out until Load reconciles.
	if e.stale {
		e.mu.Unlock()
		return ErrStale
	}

	if err := ValidatePositions(e.local); err != nil {
		e.mu.Unlock()
		return err
	}

	byWine := e.orderDiffByWine()
	if len(byWine) == 0 {
		e.state = StateLoaded
		e.mu.Unlock()
		return nil
	}

	e.state = StateSaving
	snapshot := append([]Slide(nil), e.local...)
	store := e.store
	e.mu.Unlock()

	var saveErr error
	for wineID, updates := range byWine {
		if err := store.ReorderSlides(ctx, wineID, updates); err != nil {
			saveErr = err
			break
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if saveErr != nil {
		e.local = append([]Slide(nil), e.synced...)
		e.state = StateLoaded
		e.stale = true
		return fmt.Errorf("order not saved, changes were undone: %w", saveErr)
	}
	e.synced = snapshot
	e.local = append([]Slide(nil), snapshot...)
	e.state = StateLoaded
	return nil
}

// orderDiffByWine diffs local positions against the synced snapshot.
// Callers hold e.mu.
func (e *Editor) orderDiffByWine() map[string][]PositionUpdate {
	syncedPos := make(map[string]int, len(e.synced))
	for _, s := range e.synced {
		syncedPos[s.ID] = s.Position
	}
	out := make(map[string][]PositionUpdate)
	for _, s := range e.local {
		if pos, ok := syncedPos[s.ID]; ok && pos != s.Position {
			out[s.WineID] = append(out[s.WineID], PositionUpdate{SlideID: s.ID, Position: s.Position})
		}
	}
	return out
}

func (e *Editor) ensureEditable() error {
	if e.state == StateUnloaded {
		return ErrNotLoaded
	}
	if e.state == StateSaving {
		return ErrSaveInFlight
	}
	if e.stale {
		return ErrStale
	}
	return nil
}

// hasSpareWelcome reports whether the wine holds a welcome slide other
// than exceptID.
func hasSpareWelcome(slides []Slide, wineID, exceptID string) bool {
	for _, s := range slidesOfWine(slides, wineID) {
		if s.ID != exceptID && IsWelcome(s) {
			return true
		}
	}
	return false
}

func (e *Editor) findLocal(slideID string) (Slide, bool) {
	if i := indexOf(e.local, slideID); i >= 0 {
		return e.local[i], true
	}
	return Slide{}, false
}

// applyOrder replaces the positions/sections of one wine's slides with the
// planned order. Callers hold e.mu.
func (e *Editor) applyOrder(wineID string, order []Slide) {
	byID := make(map[string]Slide, len(order))
	for _, s := range order {
		byID[s.ID] = s
	}
	for i, s := range e.local {
		if s.WineID != wineID {
			continue
		}
		if planned, ok := byID[s.ID]; ok {
			e.local[i].Position = planned.Position
			e.local[i].Section = planned.Section
		}
	}
}
