// Package relay holds the wire contract of the chat-ai relay endpoint shared by
// the server handler and the chat client.
package relay

// Path is where the relay endpoint is mounted
const Path = "/functions/v1/chat-ai"

const (
	// FallbackReply replaces a generated reply the model returned in an unusable shape
	FallbackReply = "I apologize, but I encountered an error processing your request. Please try again."

	// TechnicalDifficulties is the display text sent with every failed relay call
	TechnicalDifficulties = "I apologize, but I'm experiencing technical difficulties. Please try again later or contact the department directly."
)

// Request is the relay request body. SessionID is opaque and may be null.
type Request struct {
	Message   string  `json:"message"`
	SessionID *string `json:"sessionId"`
}

// Response is the relay response body for both success and failure.
// Error is only set on failure; Kind is set on failure and on substituted replies.
type Response struct {
	Response string      `json:"response"`
	Error    string      `json:"error,omitempty"`
	Kind     FailureKind `json:"kind,omitempty"`
}

// FailureKind is the closed set of reasons a relay call did not produce a model reply
type FailureKind string

const (
	KindConfiguration       FailureKind = "configuration"
	KindUpstreamUnavailable FailureKind = "upstream_unavailable"
	KindTimeout             FailureKind = "timeout"
	KindUnauthorized        FailureKind = "unauthorized"
	KindMalformedResponse   FailureKind = "malformed_response"
	KindUnknown             FailureKind = "unknown"
)

var knownKinds = map[FailureKind]struct{}{
	KindConfiguration:       {},
	KindUpstreamUnavailable: {},
	KindTimeout:             {},
	KindUnauthorized:        {},
	KindMalformedResponse:   {},
	KindUnknown:             {},
}

// ParseKind maps a wire value onto the enumeration; unrecognized values become KindUnknown
func ParseKind(s string) FailureKind {
	k := FailureKind(s)
	if _, ok := knownKinds[k]; ok {
		return k
	}
	return KindUnknown
}
