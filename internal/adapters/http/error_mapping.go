package httpadapter

import (
	"net/http"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// mapErrorToHTTPStatus checks upstream kinds before client-input kinds: a
// generation blocked by the model wraps both and is reported as 502. A
// rejected model API key is the server's problem, so 401 is kept for
// callers that failed bearer auth.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrUnauthorized) && !isUpstream(err):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case isUpstream(err):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrParse),
		domain.IsKind(err, domain.ErrEmptyDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isUpstream(err error) bool {
	return domain.IsKind(err, domain.ErrEmbeddingService) ||
		domain.IsKind(err, domain.ErrGeneration) ||
		domain.IsKind(err, domain.ErrAPI)
}
