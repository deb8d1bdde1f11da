package tasting

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// handleCreateWine appends a wine to the end of a package. Wine positions
// are dense (1, 2, 3, ...) unlike slide positions.
func (s *Server) handleCreateWine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	packageID := chi.URLParam(r, "id")
	if packageID == "" {
		writeError(w, http.StatusBadRequest, "missing package id")
		return
	}

	hostID, err := s.getPackageHost(ctx, packageID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: create wine fetch package: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Description = strings.TrimSpace(body.Description)

	if body.Name == "" || len(body.Name) > 200 {
		writeError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
		return
	}
	if len(body.Description) > 1000 {
		writeError(w, http.StatusBadRequest, "description is too long")
		return
	}

	var wn Wine
	err = s.db.QueryRow(ctx, `
		INSERT INTO wines (package_id, name, description, position)
		VALUES (
			$1, $2, $3,
			COALESCE((SELECT MAX(position)+1 FROM wines WHERE package_id = $1), 1)
		)
		RETURNING id, package_id, name, description, position, created_at
	`, packageID, body.Name, body.Description).Scan(
		&wn.ID,
		&wn.PackageID,
		&wn.Name,
		&wn.Description,
		&wn.Position,
		&wn.CreatedAt,
	)
	if err != nil {
		log.Printf("tasting-service: create wine insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "wine.created",
		"payload": map[string]any{
			"packageId": packageID,
			"wine":      wn,
		},
	})

	writeJSON(w, http.StatusCreated, wn)
}

// handlePatchWine updates wine metadata. Only the host can update.
func (s *Server) handlePatchWine(w http.ResponseWriter, r *http.Request) {
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
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	packageID, hostID, err := s.getWineOwner(ctx, wineID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "wine not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: patch wine fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var wn Wine
	err = s.db.QueryRow(ctx, `
		SELECT id, package_id, name, description, position, created_at
		FROM wines
		WHERE id = $1
	`, wineID).Scan(&wn.ID, &wn.PackageID, &wn.Name, &wn.Description, &wn.Position, &wn.CreatedAt)
	if err != nil {
		log.Printf("tasting-service: patch wine reload: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" || len(name) > 200 {
			writeError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
			return
		}
		wn.Name = name
	}
	if body.Description != nil {
		desc := strings.TrimSpace(*body.Description)
		if len(desc) > 1000 {
			writeError(w, http.StatusBadRequest, "description is too long")
			return
		}
		wn.Description = desc
	}

	_, err = s.db.Exec(ctx, `
		UPDATE wines
		SET name = $2,
			description = $3
		WHERE id = $1
	`, wn.ID, wn.Name, wn.Description)
	if err != nil {
		log.Printf("tasting-service: patch wine update: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "wine.updated",
		"payload": map[string]any{
			"packageId": packageID,
			"wine":      wn,
		},
	})

	writeJSON(w, http.StatusOK, wn)
}

// handleDeleteWine removes a wine and its slides, then compacts the
// remaining wine positions so they stay dense.
func (s *Server) handleDeleteWine(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("tasting-service: delete wine fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("tasting-service: delete wine begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	var pos int
	err = tx.QueryRow(ctx, `
		SELECT position
		FROM wines
		WHERE id = $1
		FOR UPDATE
	`, wineID).Scan(&pos)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "wine not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: delete wine lock: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if _, err := tx.Exec(ctx, `DELETE FROM wines WHERE id = $1`, wineID); err != nil {
		log.Printf("tasting-service: delete wine exec: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	// Compact in two steps so the unique (package_id, position) index never
	// sees a transient collision mid-statement.
	if _, err := tx.Exec(ctx, `
		UPDATE wines
		SET position = -position
		WHERE package_id = $1 AND position > $2
	`, packageID, pos); err != nil {
		log.Printf("tasting-service: delete wine compact: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if _, err := tx.Exec(ctx, `
		UPDATE wines
		SET position = -position - 1
		WHERE package_id = $1 AND position < 0
	`, packageID); err != nil {
		log.Printf("tasting-service: delete wine compact: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("tasting-service: delete wine commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "wine.deleted",
		"payload": map[string]any{
			"packageId": packageID,
			"wineId":    wineID,
		},
	})

	w.WriteHeader(http.StatusNoContent)
}
