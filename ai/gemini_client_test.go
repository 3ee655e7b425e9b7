package ai

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

	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

func newTestClient(srv *httptest.Server, timeout time.Duration) *GeminiClient {
	return NewGeminiClient(GeminiConfig{
		BaseURL: srv.URL + "/v1beta",
		Model:   "gemini-2.0-flash",
		Timeout: timeout,
	}, logger.Nop())
}

func TestGenerateTextSendsPromptAndKey(t *testing.T) {
	var gotPath, gotKey string
	var gotBody GenerateContentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Lectures hold in LT1."}]}}]}`))
	}))
	defer srv.Close()

	temp := 0.7
	tokens := 1024
	text, err := newTestClient(srv, 0).GenerateText(context.Background(), "k-123", GenerateContentRequest{
		Contents:         []Content{{Parts: []Part{{Text: "hello"}}}},
		GenerationConfig: &GenerationConfig{Temperature: &temp, MaxOutputTokens: &tokens},
	})

	require.NoError(t, err)
	assert.Equal(t, "Lectures hold in LT1.", text)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "k-123", gotKey)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "hello", gotBody.Contents[0].Parts[0].Text)
	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, 1024, *gotBody.GenerationConfig.MaxOutputTokens)
}

func TestGenerateTextUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 0).GenerateText(context.Background(), "k", GenerateContentRequest{})

	require.Error(t, err)
	assert.Equal(t, "Gemini API error: 503", err.Error())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.Equal(t, relay.KindUpstreamUnavailable, ClassifyError(err))
}

func TestGenerateTextMalformedBodies(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>`,
		"no candidates": `{"candidates":[]}`,
		"no content":    `{"candidates":[{}]}`,
		"no parts":      `{"candidates":[{"content":{"parts":[]}}]}`,
		"empty text":    `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv, 0).GenerateText(context.Background(), "k", GenerateContentRequest{})
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, relay.KindMalformedResponse, ClassifyError(err))
		})
	}
}

func TestGenerateTextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 20*time.Millisecond).GenerateText(context.Background(), "k", GenerateContentRequest{})

	require.Error(t, err)
	assert.Equal(t, relay.KindTimeout, ClassifyError(err))
}

func TestClassifyUpstreamStatuses(t *testing.T) {
	cases := map[int]relay.FailureKind{
		http.StatusUnauthorized:        relay.KindUnauthorized,
		http.StatusForbidden:           relay.KindUnauthorized,
		http.StatusNotFound:            relay.KindConfiguration,
		http.StatusRequestTimeout:      relay.KindTimeout,
		http.StatusTooManyRequests:     relay.KindUpstreamUnavailable,
		http.StatusInternalServerError: relay.KindUpstreamUnavailable,
		http.StatusBadRequest:          relay.KindUnknown,
	}

	for status, want := range cases {
		assert.Equal(t, want, ClassifyError(&UpstreamError{StatusCode: status}), "status %d", status)
	}
	assert.Equal(t, relay.KindTimeout, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, relay.KindUnknown, ClassifyError(errors.New("boom")))
	assert.Equal(t, relay.FailureKind(""), ClassifyError(nil))
}

func TestClassifyConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(srv, time.Second)
	srv.Close()

	_, err := client.GenerateText(context.Background(), "k", GenerateContentRequest{})

	require.Error(t, err)
	assert.Equal(t, relay.KindUpstreamUnavailable, ClassifyError(err))
}
