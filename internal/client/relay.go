package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

// ReplyShape tells which form a relay payload arrived in
type ReplyShape int

const (
	// ReplyText is a bare JSON string
	ReplyText ReplyShape = iota
	// ReplyResponseField is an object carrying a "response" string
	ReplyResponseField
	// ReplyMessageField is an object carrying a "message" string
	ReplyMessageField
	// ReplyUnrecognized is anything else
	ReplyUnrecognized
)

func (s ReplyShape) String() string {
	switch s {
	case ReplyText:
		return "text"
	case ReplyResponseField:
		return "response"
	case ReplyMessageField:
		return "message"
	default:
		return "unrecognized"
	}
}

// Reply is a decoded relay payload
type Reply struct {
	Shape ReplyShape
	text  string
	// Kind is set when the backend substituted the reply
	Kind relay.FailureKind
}

// Text is the assistant text to display. Unrecognized payloads show the fallback reply.
func (r Reply) Text() string {
	if r.Shape == ReplyUnrecognized {
		return relay.FallbackReply
	}
	return r.text
}

// DecodeReply classifies a relay payload without assuming its shape
func DecodeReply(data []byte) Reply {
	// blank text is never shown or stored, so it counts as no reply
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return Reply{Shape: ReplyUnrecognized}
		}
		return Reply{Shape: ReplyText, text: s}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Reply{Shape: ReplyUnrecognized}
	}

	var kind relay.FailureKind
	if raw, ok := obj["kind"]; ok {
		var k string
		if json.Unmarshal(raw, &k) == nil && k != "" {
			kind = relay.ParseKind(k)
		}
	}

	for _, field := range []struct {
		name  string
		shape ReplyShape
	}{
		{"response", ReplyResponseField},
		{"message", ReplyMessageField},
	} {
		raw, ok := obj[field.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return Reply{Shape: field.shape, text: s, Kind: kind}
		}
	}

	return Reply{Shape: ReplyUnrecognized, Kind: kind}
}

// RelayError is a relay call that produced no reply. Kind drives the apology shown.
type RelayError struct {
	// Status is zero when no HTTP response was received
	Status  int
	Kind    relay.FailureKind
	Message string
}

func (e *RelayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("relay %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("relay %s (%d): %s", e.Kind, e.Status, e.Message)
}

// Relay sends one message to the relay endpoint. Failures are always *RelayError.
func (c *Client) Relay(ctx context.Context, message string, sessionID *string) (Reply, error) {
	data, err := json.Marshal(relay.Request{Message: message, SessionID: sessionID})
	if err != nil {
		return Reply{}, &RelayError{Kind: relay.KindUnknown, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+relay.Path, bytes.NewReader(data))
	if err != nil {
		return Reply{}, &RelayError{Kind: relay.KindConfiguration, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, &RelayError{Kind: transportKind(err), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, &RelayError{Status: resp.StatusCode, Kind: transportKind(err), Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reply{}, relayFailure(resp.StatusCode, body)
	}

	return DecodeReply(body), nil
}

func relayFailure(status int, body []byte) *RelayError {
	var payload relay.Response
	_ = json.Unmarshal(body, &payload)

	kind := statusKind(status)
	if payload.Kind != "" {
		kind = relay.ParseKind(string(payload.Kind))
	}

	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RelayError{Status: status, Kind: kind, Message: msg}
}

// statusKind classifies a failed answer that carried no kind, e.g. from a proxy
func statusKind(status int) relay.FailureKind {
	switch {
	case status == http.StatusNotFound:
		return relay.KindConfiguration
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return relay.KindUnauthorized
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return relay.KindTimeout
	case status == http.StatusTooManyRequests || status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return relay.KindUpstreamUnavailable
	default:
		return relay.KindUnknown
	}
}

func transportKind(err error) relay.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return relay.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return relay.KindTimeout
	}
	return relay.KindUpstreamUnavailable
}
