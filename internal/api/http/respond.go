package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearview-college/enroll-portal/internal/draft"
	"github.com/clearview-college/enroll-portal/internal/gate"
	"github.com/clearview-college/enroll-portal/internal/records"
	"github.com/clearview-college/enroll-portal/internal/wizard"
)

// Fixed student-facing messages. The attempt-limit one has no retry path
// short of an administrative reset, so it names the way out.
const (
	msgAttemptLimit = "You have reached the maximum number of assessment attempts. Please contact student support to have your attempts reviewed."
	msgUnavailable  = "We could not save your details right now. Please try again in a few minutes."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto responses. Every branch returns
// control to the user with an explicit next action; nothing here is fatal.
func writeError(w http.ResponseWriter, err error) {
	var ve *wizard.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation",
			"issues": ve.Issues,
		})
		return
	}
	var se *wizard.StaleError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "stale_state",
			"redirect_to": se.Redirect,
		})
		return
	}
	switch {
	case errors.Is(err, gate.ErrBlocked):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   "attempt_limit",
			"message": msgAttemptLimit,
		})
	case errors.Is(err, gate.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":   "unavailable",
			"message": msgUnavailable,
		})
	case errors.Is(err, records.ErrNotFound), errors.Is(err, draft.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal"})
	}
}
