package tasting

import (
	"encoding/json"
	"errors"
	"net/http"
)

// apiError carries a status and a user-facing reason. Blocked actions must
// explain why they were refused, not just that they failed.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func conflictError(msg string) *apiError {
	return &apiError{status: http.StatusConflict, msg: msg}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

func writeAPIError(w http.ResponseWriter, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		writeError(w, ae.status, ae.msg)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
