package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ydkdan6/poly-com-ai/internal/service"
)

type FAQHandler struct {
	faqs *service.FAQService
}

func NewFAQHandler(faqs *service.FAQService) *FAQHandler {
	return &FAQHandler{faqs: faqs}
}

// List returns every FAQ record
func (h *FAQHandler) List(c *gin.Context) {
	faqs, err := h.faqs.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"faqs": faqs})
}
