package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

// ClassifyTransportError classifies failures of an HTTP call to a model
// provider. 5xx, 408 and 429 replies and network errors are retried and count
// against the breaker; other status replies are the caller's fault and do not.
func ClassifyTransportError(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr StatusCoder
	if errors.As(err, &statusErr) {
		if RetryableStatus(statusErr.HTTPStatusCode()) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{RecordFailure: true}
}

func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// WrapTransportError maps a failed provider call onto domain error kinds:
// retryable failures and an open breaker become ErrTemporary, 401 and 403
// become ErrUnauthorized. Anything else is returned unchanged.
func WrapTransportError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrUnauthorized) {
		return err
	}
	if ClassifyTransportError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}

	var statusErr StatusCoder
	if errors.As(err, &statusErr) {
		switch statusErr.HTTPStatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.WrapError(domain.ErrUnauthorized, operation, err)
		}
	}
	return err
}
