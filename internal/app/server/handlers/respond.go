package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/IdiegeA21/chat-app/pkg/logging"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation failed"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "Validation failed: " + strings.Join(fields, ", ")
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// writeDomainError maps service errors onto HTTP statuses. Anything unknown
// is logged and reported as a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, capitalize(err))
	case errors.Is(err, domain.ErrNotAMember), errors.Is(err, domain.ErrInviteRequired):
		writeError(w, http.StatusForbidden, capitalize(err))
	case errors.Is(err, domain.ErrInvalidCredential), errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, capitalize(err))
	case errors.Is(err, domain.ErrUserExists):
		writeError(w, http.StatusConflict, capitalize(err))
	case errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrInvalidRoomID),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, capitalize(err))
	default:
		logging.FromContext(r.Context()).ErrorContext(r.Context(), op+" - failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func capitalize(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
