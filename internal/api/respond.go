package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/evidence"
	"github.com/sells-group/grc-cli/internal/project"
)

// errorBody is the envelope for every non-validation error.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: msg})
}

// writeError maps service errors onto status codes. Internal details are
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := project.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, ve)
		return
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.Is(err, evidence.ErrTooLarge), errors.As(err, &maxBytes):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "too_large", Message: "upload exceeds size limit"})
	default:
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}
