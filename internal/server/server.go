// Package server assembles the HTTP and gRPC servers.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"patient-portal-api/internal/auth"
	"patient-portal-api/internal/handler"
	"patient-portal-api/internal/health"
	"patient-portal-api/internal/metrics"
	"patient-portal-api/internal/middleware"
)

type Deps struct {
	Logger  zerolog.Logger
	Handler *handler.Handler
	Tokens  *auth.TokenService
	Metrics *metrics.Metrics
	Health  *health.Checker
	Limiter *middleware.RateLimiter

	CORSOrigins []string
	// empty means ClientIP is the socket address
	TrustedProxies []string
}

// NewRouter builds the gin engine. Recovery wraps everything after it, and the
// middleware around it sees the 500 it writes. CORS runs before route matching,
// so preflights never reach the auth gate or NoRoute.
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	// the limiter keys on ClientIP, gin trusts every proxy unless told otherwise
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	r.Use(
		middleware.RequestID(d.Logger),
		middleware.Logging(),
		middleware.Metrics(d.Metrics),
		middleware.Sentry(),
		middleware.ErrorReporter(),
		middleware.Recovery(),
		middleware.CORS(d.CORSOrigins),
	)

	r.GET("/health", d.Health.Handler())
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	d.Handler.Mount(r.Group("/api"),
		middleware.Auth(d.Tokens, d.Metrics),
		middleware.RateLimit(d.Limiter),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route introuvable"})
	})
	return r, nil
}

func NewHTTP(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// NewGRPC serves the health service and reflection.
func NewGRPC(checker *health.Checker) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, checker.Server())
	reflection.Register(s)
	return s
}
