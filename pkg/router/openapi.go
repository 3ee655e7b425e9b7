package router

import (
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/ydkdan6/poly-com-ai/pkg/validator"
)

// addOpenAPIValidation validates /api/v1 requests against the configured document
// and serves it under /api/docs. Without a configured path nothing is validated.
func (r *Router) addOpenAPIValidation(group *gin.RouterGroup) {
	schemaPath := r.Config.OpenAPI.SchemaPath
	if schemaPath == "" {
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.Error("Failed to initialize OpenAPI validator, continuing without validation", "error", err.Error())
		return
	}

	group.Use(v.Middleware())
	r.Engine.StaticFile("/api/docs/openapi.yaml", schemaPath)
	r.Logger.Info("OpenAPI validation enabled", "schema", filepath.Base(schemaPath))
}
