package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"messenger-lab/errors"
)

// response is the JSON envelope every endpoint answers with.
type response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// fail maps a domain error to its status code. Internal errors are
// logged with context and surfaced only as a generic message.
func fail(w http.ResponseWriter, log *slog.Logger, err error, context string) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error(context, "error", err)
	}
	respond(w, status, errors.PublicMessage(err), nil)
}
