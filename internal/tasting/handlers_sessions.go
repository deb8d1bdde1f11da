package tasting

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// handleCreateSession starts a live run of a package. Only the host can
// start one; participants join it by code.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var body struct {
		PackageID string `json:"packageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.PackageID == "" {
		writeError(w, http.StatusBadRequest, "packageId is required")
		return
	}

	hostID, err := s.getPackageHost(ctx, body.PackageID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: create session fetch package: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if hostID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var sess Session
	err = s.db.QueryRow(ctx, `
		INSERT INTO sessions (package_id, code)
		VALUES ($1, $2)
		RETURNING id, package_id, code, created_at
	`, body.PackageID, newAccessCode()).Scan(&sess.ID, &sess.PackageID, &sess.Code, &sess.CreatedAt)
	if err != nil {
		log.Printf("tasting-service: create session insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "session.created",
		"payload": map[string]any{
			"session": sess,
		},
	})

	writeJSON(w, http.StatusCreated, sess)
}

// handleJoinSession mints a participant for a session code. No account is
// needed; the participant id is the caller's credential for the session.
func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing session code")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) > 100 {
		writeError(w, http.StatusBadRequest, "name is too long")
		return
	}

	var sess Session
	err := s.db.QueryRow(ctx, `
		SELECT id, package_id, code, created_at
		FROM sessions
		WHERE code = $1
	`, code).Scan(&sess.ID, &sess.PackageID, &sess.Code, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: join session fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	// The participant id doubles as the join credential, so it is minted
	// here rather than left to a column default.
	var p Participant
	err = s.db.QueryRow(ctx, `
		INSERT INTO participants (id, session_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, name, created_at
	`, uuid.NewString(), sess.ID, body.Name).Scan(&p.ID, &p.SessionID, &p.Name, &p.CreatedAt)
	if err != nil {
		log.Printf("tasting-service: join session insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "participant.joined",
		"room": sess.ID,
		"payload": map[string]any{
			"sessionId":   sess.ID,
			"participant": p,
		},
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"session":     sess,
		"participant": p,
	})
}

// handleSubmitResponse records a participant's answer to a question slide.
// Re-submitting for the same slide replaces the previous answer.
func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing session code")
		return
	}

	var body struct {
		ParticipantID string          `json:"participantId"`
		SlideID       string          `json:"slideId"`
		Answer        json.RawMessage `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ParticipantID == "" || body.SlideID == "" {
		writeError(w, http.StatusBadRequest, "participantId and slideId are required")
		return
	}
	if len(body.Answer) == 0 {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}

	var sessionID string
	err := s.db.QueryRow(ctx, `
		SELECT s.id
		FROM sessions s
		JOIN participants p ON p.session_id = s.id
		WHERE s.code = $1 AND p.id = $2
	`, code, body.ParticipantID).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "session or participant not found")
		return
	}
	if err != nil {
		log.Printf("tasting-service: submit response fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	var resp Response
	err = s.db.QueryRow(ctx, `
		INSERT INTO responses (session_id, participant_id, slide_id, answer)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (participant_id, slide_id)
		DO UPDATE SET answer = EXCLUDED.answer, created_at = now()
		RETURNING id, session_id, participant_id, slide_id, answer, created_at
	`, sessionID, body.ParticipantID, body.SlideID, body.Answer).Scan(
		&resp.ID,
		&resp.SessionID,
		&resp.ParticipantID,
		&resp.SlideID,
		&resp.Answer,
		&resp.CreatedAt,
	)
	if err != nil {
		log.Printf("tasting-service: submit response upsert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "response.submitted",
		"room": sessionID,
		"payload": map[string]any{
			"sessionId":     sessionID,
			"participantId": resp.ParticipantID,
			"slideId":       resp.SlideID,
		},
	})

	writeJSON(w, http.StatusCreated, resp)
}

// handleParticipantSummary builds the completion-view aggregate for one
// participant: how much they answered and how often they landed on the
// group's most common answer.
func (s *Server) handleParticipantSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := chi.URLParam(r, "id")
	participantID := chi.URLParam(r, "participantId")
	if sessionID == "" || participantID == "" {
		writeError(w, http.StatusBadRequest, "missing session or participant id")
		return
	}

	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM participants WHERE id = $1 AND session_id = $2
		)
	`, participantID, sessionID).Scan(&exists)
	if err != nil {
		log.Printf("tasting-service: summary participant check: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "participant not found in session")
		return
	}

	summary, err := s.buildSummary(ctx, sessionID, participantID)
	if err != nil {
		log.Printf("tasting-service: summary build: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	summary.GeneratedAt = time.Now().UTC()

	writeJSON(w, http.StatusOK, summary)
}
