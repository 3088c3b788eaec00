package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/roster/pkg/types"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const internalKind = "internal"

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encoding response", zap.Error(err))
	}
}

// respondError maps err to a status and a JSON error body. Business
// failures keep their kind and message; anything else is logged and
// reported as a generic internal error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := types.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.respondJSON(w, status, errorBody{Error: errorDetail{
			Kind:    internalKind,
			Message: "internal server error",
		}})
		return
	}
	s.respondJSON(w, status, errorBody{Error: errorDetail{
		Kind:    string(kind),
		Message: err.Error(),
	}})
}

func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.KindMemberNotFound, types.KindGroupNotFound,
		types.KindMembershipNotFound, types.KindUnresolvedMembers:
		return http.StatusNotFound
	case types.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads r's body into dst. A malformed body is an invalid_input
// failure.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return types.NewInvalidInput("invalid request body: " + err.Error())
	}
	return nil
}
