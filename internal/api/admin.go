package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ydkdan6/poly-com-ai/internal/service"
)

// AdminHandler exposes operator diagnostics
type AdminHandler struct {
	relay *service.RelayService
}

func NewAdminHandler(relay *service.RelayService) *AdminHandler {
	return &AdminHandler{relay: relay}
}

// RelayStatus reports the model circuit breaker counters
func (h *AdminHandler) RelayStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"breaker_open": h.relay.BreakerOpen(),
		"breaker":      h.relay.BreakerMetrics(),
	})
}
