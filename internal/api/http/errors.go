package http

import (
	"errors"
	"net/http"

	"library-circulation/internal/domain"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorBody struct {
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
	Details   map[string]any   `json:"details,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindOutOfStock, domain.KindAlreadyBorrowing, domain.KindNotActive, domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnknownParticipant, domain.KindInvalidDueDate:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Kind: domain.KindInternal, Message: "internal error", RequestID: requestIDFrom(r)}
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindInternal {
		body.Kind = de.Kind
		body.Message = de.Message
		body.Details = de.Details
	}
	writeJSON(w, StatusFor(body.Kind), map[string]errorBody{"error": body})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, domain.NewError(domain.KindInvalidArgument, msg))
}
