package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/fpl-proxy/pkg/logging"
	"github.com/Sternrassler/fpl-proxy/pkg/pipeline"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/gin-gonic/gin"
)

// CacheControl is sent with every successful payload.
const CacheControl = "public, max-age=300"

const readyTimeout = 2 * time.Second

// serve returns the handler of one family. Every named path parameter must
// be a positive integer.
func (s *Server) serve(family resource.Family, names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := make(resource.Params, len(names))
		for _, name := range names {
			v := c.Param(name)
			if !positiveInt(v) {
				s.writeError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %q", name, v))
				return
			}
			params[name] = v
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
		defer cancel()

		body, err := s.fetcher.Fetch(ctx, family, params)
		if err != nil {
			status, msg := describe(err)
			s.logger.Debug().
				Str("family", string(family)).
				Str("request_id", c.GetString(requestIDKey)).
				Int("status", status).
				Err(err).
				Msg("Fetch failed")
			s.writeError(c, status, msg)
			return
		}

		c.Header("Cache-Control", CacheControl)
		c.Data(http.StatusOK, "application/json", body)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   logging.ServiceName,
		"timestamp": s.timestamp(),
	})
}

func (s *Server) ready(c *gin.Context) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		if err := s.opts.Ready.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unavailable",
				"error":     err.Error(),
				"timestamp": s.timestamp(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": s.timestamp(),
	})
}

func (s *Server) writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"timestamp": s.timestamp(),
	})
}

func (s *Server) timestamp() string {
	return s.opts.Now().UTC().Format(time.RFC3339)
}

// describe maps a fetch failure onto a status and a client-facing message.
func describe(err error) (int, string) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, "Internal Server Error"
	}

	status := pe.HTTPStatus()
	switch pe.Kind {
	case pipeline.KindUpstreamClient:
		return status, fmt.Sprintf("Upstream rejected the request: %s", http.StatusText(pe.StatusCode))
	case pipeline.KindUpstreamExhausted:
		return status, "All upstream sources failed"
	case pipeline.KindInvalidRequest:
		if status == http.StatusNotFound || pe.Err == nil {
			return status, http.StatusText(status)
		}
		return status, pe.Err.Error()
	case pipeline.KindAborted:
		return status, "Request timed out"
	}
	return status, http.StatusText(status)
}

func positiveInt(s string) bool {
	n, err := strconv.ParseUint(s, 10, 63)
	return err == nil && n > 0
}
