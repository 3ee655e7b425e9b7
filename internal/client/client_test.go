package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"}, nil)
}

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		shape ReplyShape
		text  string
		kind  relay.FailureKind
	}{
		{"bare string", `"hello"`, ReplyText, "hello", ""},
		{"response field", `{"response":"hi there"}`, ReplyResponseField, "hi there", ""},
		{"substituted reply", `{"response":"sorry","kind":"malformed_response"}`, ReplyResponseField, "sorry", relay.KindMalformedResponse},
		{"message field", `{"message":"from message"}`, ReplyMessageField, "from message", ""},
		{"response wins over message", `{"response":"a","message":"b"}`, ReplyResponseField, "a", ""},
		{"non-string response", `{"response":42}`, ReplyUnrecognized, relay.FallbackReply, ""},
		{"empty object", `{}`, ReplyUnrecognized, relay.FallbackReply, ""},
		{"not json", `<html>`, ReplyUnrecognized, relay.FallbackReply, ""},
		{"empty string", `""`, ReplyUnrecognized, relay.FallbackReply, ""},
		{"blank string", `"  \n"`, ReplyUnrecognized, relay.FallbackReply, ""},
		{"empty response", `{"response":""}`, ReplyUnrecognized, relay.FallbackReply, ""},
		{"empty response falls to message", `{"response":"","message":"b"}`, ReplyMessageField, "b", ""},
		{"empty substituted reply keeps kind", `{"response":"","kind":"timeout"}`, ReplyUnrecognized, relay.FallbackReply, relay.KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DecodeReply([]byte(tt.body))
			assert.Equal(t, tt.shape, r.Shape)
			assert.Equal(t, tt.text, r.Text())
			assert.Equal(t, tt.kind, r.Kind)
		})
	}
}

func TestRelaySuccess(t *testing.T) {
	var got relay.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, relay.Path, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"Block C, room 4."}`))
	})

	sid := "s-1"
	reply, err := c.Relay(context.Background(), "Where is ND1?", &sid)
	require.NoError(t, err)
	assert.Equal(t, "Block C, room 4.", reply.Text())
	assert.Equal(t, "Where is ND1?", got.Message)
	require.NotNil(t, got.SessionID)
	assert.Equal(t, "s-1", *got.SessionID)
}

func TestRelaySendsTokenWhenSignedIn(t *testing.T) {
	var auth []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`"ok"`))
	})

	_, err := c.Relay(context.Background(), "hi", nil)
	require.NoError(t, err)

	c.SetToken("tok")
	_, err = c.Relay(context.Background(), "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer tok"}, auth)
}

func TestRelayFailureCarriesKind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Gemini API error: 503","response":"sorry","kind":"upstream_unavailable"}`))
	})

	_, err := c.Relay(context.Background(), "hi", nil)

	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, http.StatusInternalServerError, relayErr.Status)
	assert.Equal(t, relay.KindUpstreamUnavailable, relayErr.Kind)
	assert.Equal(t, "Gemini API error: 503", relayErr.Message)
}

func TestRelayFailureWithoutKind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.Relay(context.Background(), "hi", nil)

	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, relay.KindConfiguration, relayErr.Kind)
}

func TestRelayTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Relay(ctx, "hi", nil)

	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, relay.KindTimeout, relayErr.Kind)
	assert.Zero(t, relayErr.Status)
}

func TestSignInKeepsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"a@b.test"},"token":"tok"}`))
		case "/api/v1/auth/me":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@b.test","full_name":"A B"}`))
		}
	})

	_, err := c.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)

	user, err := c.SignIn(context.Background(), "a@b.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "tok", c.Token())

	me, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A B", me.FullName)
}

func TestAPIErrorMessagesAreVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Invalid login credentials"}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"Session belongs to another user"}}`))
		}
	})

	_, err := c.SignIn(context.Background(), "a@b.test", "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid login credentials", apiErr.Error())
	assert.Empty(t, c.Token())

	c.SetToken("tok")
	err = c.AppendMessage(context.Background(), "s1", "hi", "user")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Session belongs to another user", apiErr.Message)
}

func TestSignOutForgetsToken(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	c.SetToken("tok")
	require.NoError(t, c.SignOut(context.Background()))
	assert.Empty(t, c.Token())
	assert.Equal(t, 1, calls)

	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, 1, calls)
}
