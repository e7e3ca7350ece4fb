package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/service"
)

// Problem is an RFC 7807 error response.
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Extra    any    `json:"extra,omitempty"`
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string, extra any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  title,
		Status: status,
		Detail: detail,
		Extra:  extra,
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteServiceError maps the service error taxonomy onto HTTP statuses.
// Authorization denials stay deliberately vague: the response never
// reveals whether the resource exists or what rule denied it.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		WriteProblem(w, http.StatusNotFound, "Not Found", "resource not found", nil)
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrInvalidCredentials):
		WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required", nil)
	case errors.Is(err, service.ErrNotAuthorized):
		WriteProblem(w, http.StatusForbidden, "Forbidden", "access denied", nil)
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrInviteUsed):
		WriteProblem(w, http.StatusConflict, "Conflict", err.Error(), nil)
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrCampaignEnded), errors.Is(err, service.ErrNotPledgeable):
		WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error(), nil)
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "uri", r.RequestURI, "reqid", GetRequestID(r), "error", err)
		WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"unexpected server error (see logs by reqid)", map[string]any{"reqid": GetRequestID(r)})
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
