package api

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/animeshelf/internal/event"
	"github.com/pokerjest/animeshelf/internal/importer"
	"github.com/pokerjest/animeshelf/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxUpload = 32 << 20

// Server holds the handlers' dependencies.
type Server struct {
	importer  *importer.Importer
	store     *store.Store
	bus       event.Bus
	baseCtx   context.Context
	MaxUpload int64

	// job id -> closed once every event of the job has been published
	forwarders sync.Map
}

// NewServer wires the import API. Jobs started over HTTP inherit ctx, not the
// request context, so they outlive the POST that created them.
func NewServer(ctx context.Context, im *importer.Importer, st *store.Store, bus event.Bus) *Server {
	if bus == nil {
		bus = event.GlobalBus
	}
	return &Server{
		importer:  im,
		store:     st,
		bus:       bus,
		baseCtx:   ctx,
		MaxUpload: defaultMaxUpload,
	}
}

func (s *Server) InitRoutes(r *gin.Engine) {
	r.Use(RequestLogger())

	r.GET("/healthz", HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		// Imports
		apiGroup.POST("/imports", s.StartImportHandler)
		apiGroup.GET("/imports/:id", s.GetImportHandler)
		apiGroup.GET("/imports/:id/events", s.ImportEventsHandler)
		apiGroup.POST("/imports/:id/cancel", s.CancelImportHandler)

		// Catalog
		apiGroup.GET("/series/:external_id", s.GetSeriesHandler)
	}
}
