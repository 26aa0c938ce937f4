package handlers

import (
	"errors"
	"net/http"

	"github.com/jason-s-yu/kokodi/internal/auth"
	"github.com/jason-s-yu/kokodi/internal/game"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

// badRequestError is a malformed request detected by the handlers themselves.
type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }

var errUnauthenticated = errors.New("authentication required")

// statusFor maps an error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrUserNotFound),
		errors.Is(err, game.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrSessionFull),
		errors.Is(err, game.ErrDeckEmpty):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrInvalidActionTarget):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrNotPlayerTurn),
		errors.Is(err, game.ErrPlayerNotInSession):
		return http.StatusForbidden
	case errors.Is(err, game.ErrGuardTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with {"error": ...}. Internal errors are logged and
// their detail is kept from the client.
func writeError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("Unhandled error")
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
