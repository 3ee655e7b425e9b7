package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ydkdan6/poly-com-ai/internal/service"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/metrics"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

// Relayer answers one relay request
type Relayer interface {
	Relay(ctx context.Context, req relay.Request) (relay.Response, error)
}

// RelayHandler serves the chat relay endpoint
type RelayHandler struct {
	relay   Relayer
	maxBody int64
	logger  *logger.Logger
}

// NewRelayHandler creates the relay handler; maxBody <= 0 disables the size cap
func NewRelayHandler(r Relayer, maxBody int64, logger *logger.Logger) *RelayHandler {
	return &RelayHandler{relay: r, maxBody: maxBody, logger: logger}
}

// FailureResponse builds the user-safe payload for a failed relay
func FailureResponse(err error) relay.Response {
	kind := relay.KindUnknown
	var relayErr *service.RelayError
	if errors.As(err, &relayErr) {
		kind = relayErr.Kind
	}
	return relay.Response{
		Error:    err.Error(),
		Response: relay.TechnicalDifficulties,
		Kind:     kind,
	}
}

// Outcome labels a relay result for metrics
func Outcome(resp relay.Response) string {
	if resp.Kind == "" {
		return "ok"
	}
	return string(resp.Kind)
}

// Handle accepts {message, sessionId} and always answers with a relay.Response
func (h *RelayHandler) Handle(c *gin.Context) {
	start := time.Now()
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	var (
		resp   relay.Response
		status = http.StatusOK
	)

	var req relay.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid relay request body", "error", err.Error())
		resp = FailureResponse(errors.New("Invalid request body"))
		status = http.StatusInternalServerError
	} else if out, err := h.relay.Relay(c.Request.Context(), req); err != nil {
		resp = FailureResponse(err)
		status = http.StatusInternalServerError
	} else {
		resp = out
	}

	metrics.RelayRequests.WithLabelValues(Outcome(resp), "http").Inc()
	metrics.RelayDuration.WithLabelValues("http").Observe(time.Since(start).Seconds())
	c.JSON(status, resp)
}
