package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// classifyRemote tags an SDK error with the matching domain kind so callers
// can tell auth and quota problems apart.
func classifyRemote(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return domain.WrapError(domain.ErrUnauthorized, fmt.Sprintf("gemini status %d", apiErr.Code), err)
		case isRetryableStatus(apiErr.Code):
			return domain.WrapError(domain.ErrTemporary, fmt.Sprintf("gemini status %d", apiErr.Code), err)
		case apiErr.Code == http.StatusBadRequest:
			return domain.WrapError(domain.ErrInvalidInput, "gemini status 400", err)
		}
		return err
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return domain.WrapError(domain.ErrInvalidInput, "gemini blocked", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, "gemini network", err)
	}
	return err
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
