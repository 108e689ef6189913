package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/config"
	"github.com/Feuerhamster/memoria/internal/dav"
	"github.com/Feuerhamster/memoria/internal/http/ratelimit"
	"github.com/Feuerhamster/memoria/internal/metrics"
	"github.com/Feuerhamster/memoria/internal/store"
)

func init() {
	for _, method := range []string{
		"PROPFIND",
		"MKCOL",
		"REPORT",
		"LOCK",
		"UNLOCK",
		"MOVE",
		"COPY",
	} {
		chi.RegisterMethod(method)
	}
}

// NewRouter wires the WebDAV and CalDAV surfaces plus operational endpoints.
func NewRouter(cfg *config.Config, st *store.Store, authService *auth.Service, davHandler *dav.Handler) http.Handler {
	r := chi.NewRouter()

	// DAV sync clients poll aggressively, so the budget is generous.
	davRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(20), 50, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	// CalDAV discovery for clients probing the well-known location.
	wellKnownHandler := func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/caldav/", http.StatusMovedPermanently)
	}
	r.Get("/.well-known/caldav", wellKnownHandler)
	r.MethodFunc("PROPFIND", "/.well-known/caldav", wellKnownHandler)

	r.Route("/webdav", func(r chi.Router) {
		r.Use(davRateLimiter.Middleware())
		r.Use(authService.DAVAuth)

		r.MethodFunc("OPTIONS", "/*", davHandler.Options)
		r.MethodFunc("HEAD", "/*", davHandler.Head)
		r.MethodFunc("GET", "/*", davHandler.Get)
		r.MethodFunc("PROPFIND", "/*", davHandler.Propfind)
		r.MethodFunc("PUT", "/*", davHandler.Put)
		r.MethodFunc("DELETE", "/*", davHandler.Delete)
		r.MethodFunc("LOCK", "/*", davHandler.Lock)
		r.MethodFunc("UNLOCK", "/*", davHandler.Unlock)
		r.MethodFunc("MOVE", "/*", davHandler.Move)
		r.MethodFunc("COPY", "/*", davHandler.Copy)
		r.MethodFunc("MKCOL", "/*", davHandler.Mkcol)
	})

	r.Route("/caldav", func(r chi.Router) {
		r.Use(davRateLimiter.Middleware())
		r.Use(authService.DAVAuth)

		r.MethodFunc("OPTIONS", "/*", davHandler.CalOptions)
		r.MethodFunc("PROPFIND", "/*", davHandler.CalPropfind)
		r.MethodFunc("REPORT", "/*", davHandler.CalReport)
		r.MethodFunc("GET", "/*", davHandler.CalGet)
		r.MethodFunc("PUT", "/*", davHandler.CalPut)
		r.MethodFunc("DELETE", "/*", davHandler.CalDelete)
	})

	return r
}
