package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ydkdan6/poly-com-ai/ai"
	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/metrics"
	"github.com/ydkdan6/poly-com-ai/pkg/middleware"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
	"github.com/ydkdan6/poly-com-ai/pkg/resilience"
	"github.com/ydkdan6/poly-com-ai/pkg/secrets"
)

// ErrMissingAPIKey means no model API key could be resolved
var ErrMissingAPIKey = errors.New("model API key not configured")

// RelayError is a relay failure with its classification
type RelayError struct {
	Kind relay.FailureKind
	Err  error
}

func (e *RelayError) Error() string { return e.Err.Error() }
func (e *RelayError) Unwrap() error { return e.Err }

// Generator produces a model completion
type Generator interface {
	GenerateText(ctx context.Context, apiKey string, req ai.GenerateContentRequest) (string, error)
}

// RelayConfig holds the fixed generation parameters
type RelayConfig struct {
	APIKeySecret    string
	Temperature     float64
	MaxOutputTokens int
}

// RelayService answers one user message with FAQ-grounded model output.
// It holds no per-request state; every call reads the FAQ table afresh.
type RelayService struct {
	keys    secrets.Manager
	faqs    repository.FAQRepository
	gen     Generator
	prompts *ai.PromptBuilder
	breaker *resilience.CircuitBreaker
	cfg     RelayConfig
	log     *logger.Logger

	tracer      trace.Tracer
	promptChars metric.Int64Histogram
}

// NewRelayService wires the relay; breaker may be nil
func NewRelayService(
	keys secrets.Manager,
	faqs repository.FAQRepository,
	gen Generator,
	prompts *ai.PromptBuilder,
	breaker *resilience.CircuitBreaker,
	cfg RelayConfig,
	log *logger.Logger,
) *RelayService {
	promptChars, err := otel.Meter("cs-assistant/relay").Int64Histogram("relay.prompt.chars",
		metric.WithDescription("Characters in the composed model prompt"))
	if err != nil {
		log.LogError(err, "Failed to create prompt size histogram")
	}

	return &RelayService{
		keys:        keys,
		faqs:        faqs,
		gen:         gen,
		prompts:     prompts,
		breaker:     breaker,
		cfg:         cfg,
		log:         log,
		tracer:      otel.Tracer("cs-assistant/relay"),
		promptChars: promptChars,
	}
}

// Relay runs the single request/response cycle. On success the response carries
// the model text, or FallbackReply with KindMalformedResponse when the model
// answered without usable text. Every failure is returned as *RelayError.
func (s *RelayService) Relay(ctx context.Context, req relay.Request) (relay.Response, error) {
	ctx, span := s.tracer.Start(ctx, "relay.Relay")
	defer span.End()

	log := s.log.WithRequestID(middleware.GetRequestID(ctx))
	if req.SessionID != nil {
		log = log.WithSessionID(*req.SessionID)
		span.SetAttributes(attribute.String("relay.session_id", *req.SessionID))
	}
	if userID := middleware.GetUserID(ctx); userID != "" {
		log = log.WithUserID(userID)
	}
	log.Info("Relay message received", "message_chars", len(req.Message))

	apiKey, err := s.keys.GetSecret(ctx, s.cfg.APIKeySecret)
	if err != nil || apiKey == "" {
		if err != nil && !errors.Is(err, secrets.ErrSecretNotFound) {
			log.LogError(err, "Failed to resolve model API key")
		}
		return s.fail(span, log, relay.KindConfiguration,
			fmt.Errorf("%s not configured", secrets.EnvKey(s.cfg.APIKeySecret)))
	}

	entries := s.loadFAQs(ctx, log)
	systemPrompt := s.prompts.SystemPrompt(entries)
	userTurn := ai.UserTurn(systemPrompt, req.Message)
	if s.promptChars != nil {
		s.promptChars.Record(ctx, int64(len(userTurn)))
	}

	temperature := s.cfg.Temperature
	maxTokens := s.cfg.MaxOutputTokens
	genReq := ai.GenerateContentRequest{
		Contents: []ai.Content{{Parts: []ai.Part{{Text: userTurn}}}},
		GenerationConfig: &ai.GenerationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: &maxTokens,
		},
	}

	text, err := s.generate(ctx, apiKey, genReq)
	if errors.Is(err, ai.ErrMalformedResponse) {
		log.Warn("Model returned no usable text, substituting fallback reply")
		span.SetAttributes(attribute.String("relay.kind", string(relay.KindMalformedResponse)))
		return relay.Response{Response: relay.FallbackReply, Kind: relay.KindMalformedResponse}, nil
	}
	if err != nil {
		kind := ai.ClassifyError(err)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			kind = relay.KindUpstreamUnavailable
		}
		return s.fail(span, log, kind, err)
	}

	log.Info("Relay reply generated", "reply_chars", len(text))
	return relay.Response{Response: text}, nil
}

// loadFAQs reads the whole table; a read failure degrades to an empty FAQ block
func (s *RelayService) loadFAQs(ctx context.Context, log *logger.Logger) []ai.FAQEntry {
	ctx, span := s.tracer.Start(ctx, "relay.faqs")
	defer span.End()

	faqs, err := s.faqs.List(ctx)
	if err != nil {
		log.LogError(err, "Failed to load FAQs, continuing without FAQ context")
		span.RecordError(err)
		faqs = nil
	}

	span.SetAttributes(attribute.Int("relay.faq_count", len(faqs)))
	metrics.FAQEntries.Set(float64(len(faqs)))
	log.Debug("Retrieved FAQs", "count", len(faqs))
	return toEntries(faqs)
}

func toEntries(faqs []models.FAQ) []ai.FAQEntry {
	entries := make([]ai.FAQEntry, 0, len(faqs))
	for _, f := range faqs {
		entries = append(entries, ai.FAQEntry{
			Question: f.Question,
			Answer:   f.Answer,
			Keywords: []string(f.Keywords),
		})
	}
	return entries
}

func (s *RelayService) generate(ctx context.Context, apiKey string, req ai.GenerateContentRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "relay.gemini")
	defer span.End()

	start := time.Now()
	var text string
	call := func(ctx context.Context) error {
		var err error
		text, err = s.gen.GenerateText(ctx, apiKey, req)
		return err
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}

	metrics.GeminiResponses.WithLabelValues(statusClass(err)).Inc()
	span.SetAttributes(attribute.Int64("relay.gemini_ms", time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, ai.ErrMalformedResponse) {
		span.RecordError(err)
	}
	return text, err
}

func statusClass(err error) string {
	var upstream *ai.UpstreamError
	switch {
	case err == nil, errors.Is(err, ai.ErrMalformedResponse):
		return metrics.StatusClass(200)
	case errors.As(err, &upstream):
		return metrics.StatusClass(upstream.StatusCode)
	default:
		return metrics.StatusClass(0)
	}
}

func (s *RelayService) fail(span trace.Span, log *logger.Logger, kind relay.FailureKind, err error) (relay.Response, error) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("relay.kind", string(kind)))
	log.Error("Relay failed", "kind", string(kind), "error", err.Error())
	return relay.Response{}, &RelayError{Kind: kind, Err: err}
}

// BreakerOpen reports whether the model circuit breaker is rejecting calls
func (s *RelayService) BreakerOpen() bool {
	return s.breaker != nil && s.breaker.GetState() == resilience.StateOpen
}

// BreakerMetrics exposes the breaker counters; nil when no breaker is configured
func (s *RelayService) BreakerMetrics() map[string]interface{} {
	if s.breaker == nil {
		return nil
	}
	return s.breaker.GetMetrics()
}

// IsBreakerFailure reports which model errors should count against the breaker:
// only those that say the upstream itself is struggling
func IsBreakerFailure(err error) bool {
	switch ai.ClassifyError(err) {
	case relay.KindUpstreamUnavailable, relay.KindTimeout:
		return true
	default:
		return false
	}
}
