package httpapi

import (
	"net/http"

	"github.com/leadboost/leadpipe/internal/apperr"
)

// statusForError maps an apperr Kind to its HTTP status, per spec.md §7.
func statusForError(err error) int {
	switch {
	case apperr.Is(err, apperr.KindValidation):
		return http.StatusBadRequest
	case apperr.Is(err, apperr.KindAuth):
		return http.StatusUnauthorized
	case apperr.Is(err, apperr.KindAuthorization):
		return http.StatusForbidden
	case apperr.Is(err, apperr.KindQuotaExceeded):
		return http.StatusTooManyRequests
	case apperr.Is(err, apperr.KindNotFound):
		return http.StatusNotFound
	case apperr.Is(err, apperr.KindUpstream), apperr.Is(err, apperr.KindTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
