package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ydkdan6/poly-com-ai/ai"
	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
	"github.com/ydkdan6/poly-com-ai/pkg/resilience"
)

type fakeGemini struct {
	srv      *httptest.Server
	calls    atomic.Int32
	lastText atomic.Value
}

func newFakeGemini(t *testing.T, status int, body string) *fakeGemini {
	f := &fakeGemini{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		var req ai.GenerateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			f.lastText.Store(req.Contents[0].Parts[0].Text)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGemini) client() *ai.GeminiClient {
	return ai.NewGeminiClient(ai.GeminiConfig{BaseURL: f.srv.URL, Model: "gemini-2.0-flash"}, logger.Nop())
}

type failingFAQs struct{ repository.FAQRepository }

func (failingFAQs) List(context.Context) ([]models.FAQ, error) {
	return nil, errors.New("faq table unavailable")
}

var relayCfg = RelayConfig{APIKeySecret: "gemini_api_key", Temperature: 0.7, MaxOutputTokens: 1024}

func newRelay(t *testing.T, keys staticKeys, faqs repository.FAQRepository, gen Generator, breaker *resilience.CircuitBreaker) *RelayService {
	if faqs == nil {
		faqs = repository.NewGormFAQRepository(newTestDB(t))
	}
	return NewRelayService(keys, faqs, gen, ai.NewPromptBuilder(ai.DefaultProfile()), breaker, relayCfg, logger.Nop())
}

func TestRelayEmbedsFAQsAndReturnsReply(t *testing.T) {
	ctx := context.Background()
	faqs := repository.NewGormFAQRepository(newTestDB(t))
	require.NoError(t, faqs.CreateBatch(ctx, []models.FAQ{
		{Category: "admissions", Question: "When does registration close?", Answer: "End of week 3.", Keywords: []string{"registration", "deadline"}},
	}))

	gemini := newFakeGemini(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Registration closes at the end of week 3."}]}}]}`)
	svc := newRelay(t, staticKeys{"gemini_api_key": "k"}, faqs, gemini.client(), nil)

	session := "s-1"
	resp, err := svc.Relay(ctx, relay.Request{Message: "When does registration close?", SessionID: &session})
	require.NoError(t, err)
	assert.Equal(t, "Registration closes at the end of week 3.", resp.Response)
	assert.Empty(t, resp.Kind)

	sent := gemini.lastText.Load().(string)
	assert.Contains(t, sent, "Q: When does registration close?\nA: End of week 3.\nKeywords: registration, deadline")
	assert.Contains(t, sent, "\n\nUser: When does registration close?")
}

func TestRelayMissingKey(t *testing.T) {
	gemini := newFakeGemini(t, http.StatusOK, `{}`)
	svc := newRelay(t, staticKeys{}, nil, gemini.client(), nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Relay(context.Background(), relay.Request{Message: "hi"})

		var relayErr *RelayError
		require.True(t, errors.As(err, &relayErr))
		assert.Equal(t, relay.KindConfiguration, relayErr.Kind)
		assert.Equal(t, "GEMINI_API_KEY not configured", err.Error())
	}
	assert.Zero(t, gemini.calls.Load())
}

func TestRelayUpstreamFailure(t *testing.T) {
	gemini := newFakeGemini(t, http.StatusServiceUnavailable, `{"error":{"code":503}}`)
	svc := newRelay(t, staticKeys{"gemini_api_key": "k"}, nil, gemini.client(), nil)

	_, err := svc.Relay(context.Background(), relay.Request{Message: "hi"})

	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, "Gemini API error: 503", err.Error())
	assert.Equal(t, relay.KindUpstreamUnavailable, relayErr.Kind)
}

func TestRelayMalformedReplyFallsBack(t *testing.T) {
	gemini := newFakeGemini(t, http.StatusOK, `{"candidates":[]}`)
	svc := newRelay(t, staticKeys{"gemini_api_key": "k"}, nil, gemini.client(), nil)

	resp, err := svc.Relay(context.Background(), relay.Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, relay.FallbackReply, resp.Response)
	assert.Equal(t, relay.KindMalformedResponse, resp.Kind)
}

func TestRelayContinuesWithoutFAQs(t *testing.T) {
	gemini := newFakeGemini(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	svc := newRelay(t, staticKeys{"gemini_api_key": "k"}, failingFAQs{}, gemini.client(), nil)

	resp, err := svc.Relay(context.Background(), relay.Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
}

func TestRelayBreakerFailsFast(t *testing.T) {
	gemini := newFakeGemini(t, http.StatusBadGateway, `bad gateway`)
	breaker := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "gemini",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		RetryTimeout:     time.Hour,
		IsFailure:        IsBreakerFailure,
	}, logger.Nop())
	svc := newRelay(t, staticKeys{"gemini_api_key": "k"}, nil, gemini.client(), breaker)

	for i := 0; i < 2; i++ {
		_, err := svc.Relay(context.Background(), relay.Request{Message: "hi"})
		require.Error(t, err)
	}
	assert.True(t, svc.BreakerOpen())

	_, err := svc.Relay(context.Background(), relay.Request{Message: "hi"})
	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, relay.KindUpstreamUnavailable, relayErr.Kind)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.EqualValues(t, 2, gemini.calls.Load())
	assert.NotNil(t, svc.BreakerMetrics())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	assert.False(t, IsBreakerFailure(&ai.UpstreamError{StatusCode: http.StatusUnauthorized}))
	assert.False(t, IsBreakerFailure(ai.ErrMalformedResponse))
	assert.True(t, IsBreakerFailure(&ai.UpstreamError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, IsBreakerFailure(context.DeadlineExceeded))
}
