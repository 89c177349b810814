package api

import (
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "go-pipeline-engine/docs"
	"go-pipeline-engine/internal/api/handler"
	"go-pipeline-engine/pkg/metrics"
	"go-pipeline-engine/pkg/router"
)

// NewRouter registers the API routes. Specific routes come before the
// wildcard routes that would also match them.
func NewRouter(h *handler.Handler, m *metrics.Metrics, logger *zap.Logger) *router.Router {
	r := router.New(logger)

	r.GET("/api/v1/pipelines", h.ListPipelines)
	r.POST("/api/v1/pipelines/*/runs", h.RunPipeline)
	r.GET("/api/v1/pipelines/*", h.GetPipeline)

	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*", h.GetRun)

	r.POST("/api/v1/placement", h.Placement)
	r.GET("/api/v1/tiers", h.Tiers)

	r.Handle("/metrics", m.Handler())
	r.Handle("/swagger/*", httpSwagger.WrapHandler)
	return r
}
