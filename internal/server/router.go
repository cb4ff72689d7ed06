// Package server assembles the HTTP router.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/auth"
	"github.com/ayush/autos-marketplace/backend/internal/middleware"
	"github.com/ayush/autos-marketplace/backend/internal/respond"
)

// Mounter registers a group of routes on the router.
type Mounter interface {
	Mount(r chi.Router, requireToken func(http.Handler) http.Handler)
}

// Options configures NewRouter.
type Options struct {
	Logger       *zap.Logger
	CORSOrigins  []string
	RequireToken func(http.Handler) http.Handler
	// Health, when set, is called by GET /health; an error reports 503.
	Health func(ctx context.Context) error
}

func NewRouter(opts Options, groups ...Mounter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", auth.TokenHeader},
		ExposedHeaders:   []string{auth.TokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.MethodNotAllowed(respond.MethodNotAllowed)
	r.NotFound(respond.NotFound)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Health(ctx); err != nil {
				opts.Logger.Warn("health check failed", zap.Error(err))
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, g := range groups {
		g.Mount(r, opts.RequireToken)
	}
	return r
}
