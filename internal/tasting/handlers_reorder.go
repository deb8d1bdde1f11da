package tasting

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"tastingroom/internal/deck"
)

// handleReorderSlides applies a batch of position updates to one wine
// atomically. The wine's rows are locked, the updates are overlaid on the
// current positions and scanned for duplicates, and only then written —
// in two steps, so the unique (wine_id, position) index never sees a
// transient collision while positions trade places.
func (s *Server) handleReorderSlides(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	wineID := chi.URLParam(r, "id")
	if wineID == "" {
		writeError(w, http.StatusBadRequest, "missing wine id")
		return
	}

	var body struct {
		Updates []deck.PositionUpdate `json:"updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Updates) == 0 {
		writeError(w, http.StatusBadRequest, "updates must not be empty")
		return
	}
	for _, u := range body.Updates {
		if u.SlideID == "" || u.Position <= 0 {
			writeError(w, http.StatusBadRequest, "each update needs a slideId and a positive position")
			return
		}
	}

	packageID, hostID, err := s.getWineOwner(ctx, wineID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "wine not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: reorder fetch wine: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("tasting-service: reorder begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	stored, err := wineSlidesTx(ctx, tx, wineID)
	if err != nil {
		log.Printf("tasting-service: reorder load wine: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := checkReorder(wineID, stored, body.Updates); err != nil {
		writeAPIError(w, err)
		return
	}

	// Step one: move every updated slide out of the live position range.
	ids := make([]string, len(body.Updates))
	for i, u := range body.Updates {
		ids[i] = u.SlideID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE slides
		SET position = -position
		WHERE wine_id = $1 AND id = ANY($2)
	`, wineID, ids); err != nil {
		log.Printf("tasting-service: reorder park positions: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	// Step two: land each slide on its target position.
	for _, u := range body.Updates {
		tag, err := tx.Exec(ctx, `
			UPDATE slides
			SET position = $3
			WHERE id = $2 AND wine_id = $1
		`, wineID, u.SlideID, u.Position)
		if err != nil {
			log.Printf("tasting-service: reorder set position: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		if tag.RowsAffected() == 0 {
			writeError(w, http.StatusNotFound, fmt.Sprintf("slide %s not found in wine", u.SlideID))
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("tasting-service: reorder commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "slides.reordered",
		"payload": map[string]any{
			"packageId": packageID,
			"wineId":    wineID,
			"updates":   body.Updates,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"wineId":  wineID,
		"updated": len(body.Updates),
	})
}

// checkReorder overlays the requested updates on the stored positions and
// rejects the batch if any slide is missing, any update repeats a slide,
// or the resulting list holds a duplicate position.
func checkReorder(wineID string, stored []Slide, updates []deck.PositionUpdate) error {
	current := make(map[string]int, len(stored))
	for _, sl := range stored {
		current[sl.ID] = sl.Position
	}

	seen := make(map[string]bool, len(updates))
	for _, u := range updates {
		if _, ok := current[u.SlideID]; !ok {
			return &apiError{status: http.StatusNotFound, msg: fmt.Sprintf("slide %s not found in wine", u.SlideID)}
		}
		if seen[u.SlideID] {
			return conflictError(fmt.Sprintf("slide %s appears twice in the update batch", u.SlideID))
		}
		seen[u.SlideID] = true
		current[u.SlideID] = u.Position
	}

	byPos := make(map[int]string, len(current))
	for id, pos := range current {
		if other, dup := byPos[pos]; dup {
			return conflictError(fmt.Sprintf("reorder would leave slides %s and %s of wine %s both at position %d", other, id, wineID, pos))
		}
		byPos[pos] = id
	}
	return nil
}
