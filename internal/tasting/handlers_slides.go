package tasting

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"tastingroom/internal/deck"
)

// handleCreateSlide appends a slide to a wine. The position is allocated in
// SQL as the next free multiple of ten, so creates never collide with an
// existing position even when the list carries legacy non-multiple values.
func (s *Server) handleCreateSlide(w http.ResponseWriter, r *http.Request) {
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

	packageID, hostID, err := s.getWineOwner(ctx, wineID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "wine not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: create slide fetch wine: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var body struct {
		Type        string          `json:"type"`
		SectionType string          `json:"sectionType"`
		Payload     json.RawMessage `json:"payload"`
		Template    string          `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// A template pre-fills type, section and payload; explicit fields win.
	if body.Template != "" {
		tpl, ok := slideTemplates[strings.ToLower(strings.TrimSpace(body.Template))]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown slide template")
			return
		}
		if body.Type == "" {
			body.Type = tpl.Type
		}
		if body.SectionType == "" {
			body.SectionType = tpl.SectionType
		}
		if len(body.Payload) == 0 {
			body.Payload = tpl.Payload
		}
	}

	body.Type = strings.TrimSpace(strings.ToLower(body.Type))
	if body.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	if !validSection(body.SectionType) {
		writeError(w, http.StatusBadRequest, `invalid sectionType (must be "intro", "deep_dive" or "ending")`)
		return
	}
	if len(body.Payload) == 0 {
		body.Payload = json.RawMessage(`{}`)
	}

	// Reject unknown slide types and malformed payloads up front.
	if _, err := deck.DecodePayload(deck.SlideType(body.Type), body.Payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sl Slide
	err = s.db.QueryRow(ctx, `
		INSERT INTO slides (wine_id, type, section_type, position, payload)
		VALUES (
			$1, $2, NULLIF($3, ''),
			COALESCE((SELECT (MAX(position)/10 + 1)*10 FROM slides WHERE wine_id = $1), 10),
			$4
		)
		RETURNING id, wine_id, type, COALESCE(section_type, ''), position, payload, created_at
	`, wineID, body.Type, body.SectionType, body.Payload).Scan(
		&sl.ID,
		&sl.WineID,
		&sl.Type,
		&sl.SectionType,
		&sl.Position,
		&sl.Payload,
		&sl.CreatedAt,
	)
	if err != nil {
		log.Printf("tasting-service: create slide insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "slide.created",
		"payload": map[string]any{
			"packageId": packageID,
			"wineId":    wineID,
			"slide":     sl,
		},
	})

	writeJSON(w, http.StatusCreated, sl)
}

// handlePatchSlide updates a slide's section and/or payload. The type is
// immutable; the payload is validated against it. An edit that would strip
// the wine's only welcome slide is refused like a delete would be, over
// locked rows so a concurrent edit cannot race past the check.
func (s *Server) handlePatchSlide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	slideID := chi.URLParam(r, "id")
	if slideID == "" {
		writeError(w, http.StatusBadRequest, "missing slide id")
		return
	}

	var body struct {
		SectionType *string         `json:"sectionType"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SectionType != nil && !validSection(*body.SectionType) {
		writeError(w, http.StatusBadRequest, `invalid sectionType (must be "intro", "deep_dive" or "ending")`)
		return
	}

	wineID, packageID, hostID, err := s.getSlideOwner(ctx, slideID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "slide not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: patch slide fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("tasting-service: patch slide begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	stored, err := wineSlidesTx(ctx, tx, wineID)
	if err != nil {
		log.Printf("tasting-service: patch slide load wine: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	var target *Slide
	welcomes := 0
	for i := range stored {
		ds, err := toDeckSlide(stored[i])
		if err != nil {
			log.Printf("tasting-service: patch slide decode %s: %v", stored[i].ID, err)
			writeError(w, http.StatusInternalServerError, "corrupt slide payload")
			return
		}
		if deck.IsWelcome(ds) {
			welcomes++
		}
		if stored[i].ID == slideID {
			target = &stored[i]
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "slide not found")
		return
	}

	patched := *target
	if body.SectionType != nil {
		patched.SectionType = *body.SectionType
	}
	if len(body.Payload) > 0 {
		patched.Payload = body.Payload
	}

	was, _ := toDeckSlide(*target)
	now, err := toDeckSlide(patched)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if deck.IsWelcome(was) && !deck.IsWelcome(now) && welcomes <= 1 {
		writeError(w, http.StatusConflict, "edit would leave the wine without a welcome slide")
		return
	}

	if _, err := tx.Exec(ctx, `
		UPDATE slides
		SET section_type = NULLIF($2, ''),
			payload = $3
		WHERE id = $1
	`, patched.ID, patched.SectionType, patched.Payload); err != nil {
		log.Printf("tasting-service: patch slide update: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("tasting-service: patch slide commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "slide.updated",
		"payload": map[string]any{
			"packageId": packageID,
			"wineId":    wineID,
			"slide":     patched,
		},
	})

	writeJSON(w, http.StatusOK, patched)
}

// handleDeleteSlide removes a slide. Deleting a wine's only welcome slide
// is refused: every wine keeps at least one. The check runs on locked rows
// so a concurrent delete cannot race past it.
func (s *Server) handleDeleteSlide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	slideID := chi.URLParam(r, "id")
	if slideID == "" {
		writeError(w, http.StatusBadRequest, "missing slide id")
		return
	}

	wineID, packageID, hostID, err := s.getSlideOwner(ctx, slideID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "slide not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: delete slide fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("tasting-service: delete slide begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	stored, err := wineSlidesTx(ctx, tx, wineID)
	if err != nil {
		log.Printf("tasting-service: delete slide load wine: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	var target *deck.Slide
	welcomes := 0
	for _, row := range stored {
		ds, err := toDeckSlide(row)
		if err != nil {
			log.Printf("tasting-service: delete slide decode %s: %v", row.ID, err)
			writeError(w, http.StatusInternalServerError, "corrupt slide payload")
			return
		}
		if deck.IsWelcome(ds) {
			welcomes++
		}
		if ds.ID == slideID {
			target = &ds
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "slide not found")
		return
	}
	if deck.IsWelcome(*target) && welcomes <= 1 {
		writeError(w, http.StatusConflict, "cannot delete the wine's only welcome slide")
		return
	}

	if _, err := tx.Exec(ctx, `DELETE FROM slides WHERE id = $1`, slideID); err != nil {
		log.Printf("tasting-service: delete slide exec: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("tasting-service: delete slide commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "slide.deleted",
		"payload": map[string]any{
			"packageId": packageID,
			"wineId":    wineID,
			"slideId":   slideID,
		},
	})

	w.WriteHeader(http.StatusNoContent)
}

func validSection(s string) bool {
	switch s {
	case "", "intro", "deep_dive", "ending":
		return true
	}
	return false
}
