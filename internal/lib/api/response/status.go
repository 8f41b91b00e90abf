package response

import (
	"errors"
	"net/http"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/validate"
)

// StatusFor maps domain errors to the HTTP status answered to the dashboard.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, validate.ErrInvalid),
		errors.Is(err, entity.ErrEmptyMessage),
		errors.Is(err, entity.ErrTooManyImages),
		errors.Is(err, entity.ErrUnsupportedImage),
		errors.Is(err, entity.ErrNotAnImage),
		errors.Is(err, entity.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrNoAgent),
		errors.Is(err, entity.ErrAgentInactive),
		errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrIllegalTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
