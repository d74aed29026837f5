// Package server exposes the fetch pipeline over HTTP with the FPL proxy's
// public route set.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/fpl-proxy/pkg/metrics"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultRequestTimeout bounds how long a request waits for the pipeline.
const DefaultRequestTimeout = 90 * time.Second

// Fetcher serves one resource; *pipeline.Pipeline implements it.
type Fetcher interface {
	Fetch(ctx context.Context, family resource.Family, params resource.Params) ([]byte, error)
}

// Pinger checks a dependency for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the server.
type Options struct {
	// RequestTimeout bounds the wait for a payload (default: DefaultRequestTimeout)
	RequestTimeout time.Duration

	// Ready is checked by /ready; nil means always ready
	Ready Pinger

	// Now is the clock used for response timestamps (default: time.Now)
	Now func() time.Time
}

// Server routes HTTP requests to the pipeline.
type Server struct {
	engine  *gin.Engine
	fetcher Fetcher
	opts    Options
	logger  zerolog.Logger
}

// New creates a server with every route registered.
func New(fetcher Fetcher, opts Options, logger zerolog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:  gin.New(),
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}

	s.engine.Use(
		requestID(),
		s.recovery(),
		accessLog(logger),
		cors(),
	)
	s.routes()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/bootstrap-static", s.serve(resource.FamilyBootstrap))
	r.GET("/fixtures", s.serve(resource.FamilyFixtures))
	r.GET("/element-summary/:id", s.serve(resource.FamilyElementSummary, resource.ParamID))
	r.GET("/live-event/:gw", s.serve(resource.FamilyLiveEvent, resource.ParamGameweek))
	r.GET("/picks/:manager_id/:gw", s.serve(resource.FamilyPicks, resource.ParamManagerID, resource.ParamGameweek))
	r.GET("/manager/:id", s.serve(resource.FamilyManager, resource.ParamID))
	r.GET("/manager/:id/transfers", s.serve(resource.FamilyManagerTransfers, resource.ParamID))
	r.GET("/manager/:id/history", s.serve(resource.FamilyManagerHistory, resource.ParamID))
	r.GET("/league/:league_id/:page", s.serve(resource.FamilyLeague, resource.ParamLeagueID, resource.ParamPage))
	r.GET("/league/mon/:league_id/:phase", s.serve(resource.FamilyLeagueByPhase, resource.ParamLeagueID, resource.ParamPhase))

	r.NoRoute(func(c *gin.Context) {
		s.writeError(c, http.StatusNotFound, "Not Found")
	})
}
