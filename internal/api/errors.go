package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fileshare/internal/access"
	"fileshare/internal/files"
	"fileshare/internal/identity"
	"fileshare/internal/sharing"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// statusFor maps a domain error onto an HTTP status. The bool is false for
// errors whose text must not reach the client.
func statusFor(err error) (int, bool) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, true
	case errors.Is(err, files.ErrUnsupportedType),
		errors.Is(err, files.ErrInvalidFilename),
		errors.Is(err, files.ErrSizeMismatch),
		errors.Is(err, files.ErrSizeExceeded),
		errors.Is(err, files.ErrNothingToExport),
		errors.Is(err, identity.ErrValidation),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, sharing.ErrSelfShare),
		errors.Is(err, sharing.ErrSelfTransfer):
		return http.StatusBadRequest, true
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, access.ErrAccessDenied),
		errors.Is(err, sharing.ErrNotOwner),
		errors.Is(err, identity.ErrAccountDisabled),
		errors.Is(err, identity.ErrNotVerified):
		return http.StatusForbidden, true
	case errors.Is(err, access.ErrFileNotFound),
		errors.Is(err, access.ErrUserNotFound),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, sharing.ErrUserNotFound),
		errors.Is(err, sharing.ErrNotShared),
		errors.Is(err, files.ErrNotFoundOnDisk):
		return http.StatusNotFound, true
	case errors.Is(err, identity.ErrDuplicateEmail),
		errors.Is(err, sharing.ErrAlreadyShared),
		errors.Is(err, sharing.ErrStaleFile),
		errors.Is(err, files.ErrNotDeleted):
		return http.StatusConflict, true
	}
	return http.StatusInternalServerError, false
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, public := statusFor(err)
	if public {
		http.Error(w, err.Error(), status)
		return
	}

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if errors.Is(err, files.ErrIntegrity) {
		fields = append(fields, zap.String("severity", "critical"))
	}
	s.log.Error("request failed", fields...)
	http.Error(w, "Internal server error", status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
