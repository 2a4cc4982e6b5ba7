package http

import (
	"net/http"
	"strings"

	"github.com/ysalameh/paywatch/internal/config"
	"github.com/ysalameh/paywatch/internal/infrastructure/telemetry"
	"github.com/ysalameh/paywatch/internal/processing/paylinks"
	"github.com/ysalameh/paywatch/internal/transport/http/middleware"
	"github.com/ysalameh/paywatch/internal/transport/ws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":                  "health",
	"GET /metrics":                 "metrics",
	"GET /ws":                      "links.stream",
	"POST /api/links":              "links.create",
	"GET /api/links":               "links.list",
	"GET /api/links/{id}":          "links.get",
	"POST /api/links/{id}/renew":   "links.renew",
	"POST /api/links/{id}/archive": "links.archive",
	"DELETE /api/links/{id}":       "links.delete",
	"POST /api/links/{id}/check":   "links.check",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, svc *paylinks.Service, hub *ws.Hub) http.Handler {
	return NewRouterWithOptions(cfg, svc, hub, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, svc *paylinks.Service, hub *ws.Hub, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler()
	linksHandler := NewLinksHandler(svc)
	wsHandler := NewWSHandler(hub)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	auth := middleware.AuthMiddleware(cfg.Security.APIKeys)

	mux.Handle("GET /ws", auth(http.HandlerFunc(wsHandler.Serve)))

	mux.Handle("POST /api/links", middleware.Chain(http.HandlerFunc(linksHandler.Create), auth))
	mux.Handle("GET /api/links", middleware.Chain(http.HandlerFunc(linksHandler.List), auth))
	mux.Handle("GET /api/links/{id}", middleware.Chain(http.HandlerFunc(linksHandler.Get), auth))
	mux.Handle("POST /api/links/{id}/renew", middleware.Chain(http.HandlerFunc(linksHandler.Renew), auth))
	mux.Handle("POST /api/links/{id}/archive", middleware.Chain(http.HandlerFunc(linksHandler.Archive), auth))
	mux.Handle("DELETE /api/links/{id}", middleware.Chain(http.HandlerFunc(linksHandler.Delete), auth))
	mux.Handle("POST /api/links/{id}/check", middleware.Chain(http.HandlerFunc(linksHandler.Check), auth))

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
