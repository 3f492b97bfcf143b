package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledgerd/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// validationMessage translates the error taxonomy into a caller-facing
// message. Store driver text never reaches the client.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount must be a positive decimal number"
	case errors.Is(err, core.ErrUnknownCategory):
		return "categoryId must reference an existing category"
	case errors.Is(err, core.ErrInvalidDate):
		return "dates must be ISO-8601 timestamps"
	case errors.Is(err, core.ErrInvalidYear):
		return "year must be a four-digit calendar year"
	case errors.Is(err, core.ErrInvalidMonth):
		return "month must be between 1 and 12"
	}
	return "invalid request"
}

// writeStoreError maps a data-access failure onto the response taxonomy:
// absent entity 404, caller error 400, anything else a generic 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "expense not found")
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	default:
		slog.ErrorContext(ctx, "Storage failure",
			"request_id", requestID(ctx),
			"operation", op,
			"error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
	}
}
