// Package health reports database reachability over gRPC health v1 and HTTP.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name registered alongside the overall ("") status.
const Service = "patientportal.v1.API"

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	db  Pinger
	srv *health.Server

	mu      sync.Mutex
	checked bool
	lastErr error
}

func New(db Pinger) *Checker {
	c := &Checker{db: db, srv: health.NewServer()}
	c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Server is registered on the gRPC server by the caller.
func (c *Checker) Server() *health.Server { return c.srv }

func (c *Checker) set(st healthpb.HealthCheckResponse_ServingStatus) {
	c.srv.SetServingStatus("", st)
	c.srv.SetServingStatus(Service, st)
}

// Check pings the database once and publishes the result.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := c.db.Ping(ctx)

	c.mu.Lock()
	changed := !c.checked || (err == nil) != (c.lastErr == nil)
	c.checked = true
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	} else {
		c.set(healthpb.HealthCheckResponse_SERVING)
	}
	if changed {
		ev := zerolog.Ctx(ctx).Info()
		if err != nil {
			ev = zerolog.Ctx(ctx).Warn().Err(err)
		}
		ev.Bool("serving", err == nil).Msg("health changed")
	}
	return err
}

// Run checks every interval until ctx is done, then marks everything
// NOT_SERVING.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	_ = c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.srv.Shutdown()
			return
		case <-t.C:
			_ = c.Check(ctx)
		}
	}
}

// Handler serves GET /health.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := c.Check(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "degraded",
				"database": "unavailable",
			})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"database": "available",
		})
	}
}
