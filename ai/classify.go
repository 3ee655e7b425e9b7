package ai

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

// ClassifyError maps an error from GenerateText onto a relay failure kind
func ClassifyError(err error) relay.FailureKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrMalformedResponse) {
		return relay.KindMalformedResponse
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		switch {
		case upstream.StatusCode == http.StatusUnauthorized, upstream.StatusCode == http.StatusForbidden:
			return relay.KindUnauthorized
		case upstream.StatusCode == http.StatusNotFound:
			return relay.KindConfiguration
		case upstream.StatusCode == http.StatusRequestTimeout, upstream.StatusCode == http.StatusGatewayTimeout:
			return relay.KindTimeout
		case upstream.StatusCode == http.StatusTooManyRequests, upstream.StatusCode >= 500:
			return relay.KindUpstreamUnavailable
		default:
			return relay.KindUnknown
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return relay.KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return relay.KindTimeout
		}
		return relay.KindUpstreamUnavailable
	}

	return relay.KindUnknown
}
