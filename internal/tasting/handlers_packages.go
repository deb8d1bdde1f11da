package tasting

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// handleEditorData returns the full editing payload for a package: the
// package row plus all wines and all slides, one fetch. The editor keeps
// this as its synced snapshot.
func (s *Server) handleEditorData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing package code")
		return
	}

	var pkg Package
	err := s.db.QueryRow(ctx, `
		SELECT id, code, host_id, name, description, created_at
		FROM packages
		WHERE code = $1
	`, code).Scan(&pkg.ID, &pkg.Code, &pkg.HostID, &pkg.Name, &pkg.Description, &pkg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: editor data package: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if pkg.HostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	wines, err := s.packageWines(ctx, pkg.ID)
	if err != nil {
		log.Printf("tasting-service: editor data wines: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	slides, err := s.packageSlides(ctx, pkg.ID)
	if err != nil {
		log.Printf("tasting-service: editor data slides: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"package": pkg,
		"wines":   wines,
		"slides":  slides,
	})
}

func (s *Server) packageWines(ctx context.Context, packageID string) ([]Wine, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, package_id, name, description, position, created_at
		FROM wines
		WHERE package_id = $1
		ORDER BY position ASC
	`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wines := []Wine{}
	for rows.Next() {
		var wn Wine
		if err := rows.Scan(&wn.ID, &wn.PackageID, &wn.Name, &wn.Description, &wn.Position, &wn.CreatedAt); err != nil {
			return nil, err
		}
		wines = append(wines, wn)
	}
	return wines, rows.Err()
}

func (s *Server) packageSlides(ctx context.Context, packageID string) ([]Slide, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.wine_id, s.type, COALESCE(s.section_type, ''), s.position, s.payload, s.created_at
		FROM slides s
		JOIN wines w ON w.id = s.wine_id
		WHERE w.package_id = $1
		ORDER BY w.position ASC, s.position ASC
	`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slides := []Slide{}
	for rows.Next() {
		var sl Slide
		if err := rows.Scan(&sl.ID, &sl.WineID, &sl.Type, &sl.SectionType, &sl.Position, &sl.Payload, &sl.CreatedAt); err != nil {
			return nil, err
		}
		slides = append(slides, sl)
	}
	return slides, rows.Err()
}

// handleCreatePackage creates a new package owned by the current user. The
// package starts empty; wines and slides are added separately.
func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hostID := r.Header.Get("X-User-Id")
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
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

	var pkg Package
	err := s.db.QueryRow(ctx, `
		INSERT INTO packages (code, host_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, code, host_id, name, description, created_at
	`, newAccessCode(), hostID, body.Name, body.Description).Scan(
		&pkg.ID,
		&pkg.Code,
		&pkg.HostID,
		&pkg.Name,
		&pkg.Description,
		&pkg.CreatedAt,
	)
	if err != nil {
		log.Printf("tasting-service: create package: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusCreated, pkg)
}

// handlePatchPackage updates package metadata. Only the host can update.
func (s *Server) handlePatchPackage(w http.ResponseWriter, r *http.Request) {
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

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var pkg Package
	err := s.db.QueryRow(ctx, `
		SELECT id, code, host_id, name, description, created_at
		FROM packages
		WHERE id = $1
	`, packageID).Scan(&pkg.ID, &pkg.Code, &pkg.HostID, &pkg.Name, &pkg.Description, &pkg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: patch package fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if pkg.HostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" || len(name) > 200 {
			writeError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
			return
		}
		pkg.Name = name
	}
	if body.Description != nil {
		desc := strings.TrimSpace(*body.Description)
		if len(desc) > 1000 {
			writeError(w, http.StatusBadRequest, "description is too long")
			return
		}
		pkg.Description = desc
	}

	_, err = s.db.Exec(ctx, `
		UPDATE packages
		SET name = $2,
			description = $3
		WHERE id = $1
	`, pkg.ID, pkg.Name, pkg.Description)
	if err != nil {
		log.Printf("tasting-service: patch package update: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "package.updated",
		"payload": map[string]any{
			"package": pkg,
		},
	})

	writeJSON(w, http.StatusOK, pkg)
}

// handleDeletePackage deletes a package and everything under it. Only the
// host can delete.
func (s *Server) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("tasting-service: delete package fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM packages WHERE id = $1`, packageID); err != nil {
		log.Printf("tasting-service: delete package exec: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "package.deleted",
		"payload": map[string]any{"packageId": packageID},
	})

	w.WriteHeader(http.StatusNoContent)
}
