package telemetry

import (
	"context"
	"io"
	"log/slog"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const httpRouteKey contextKey = "http.route"

// WithHTTPRoute stores a resolver for the HTTP route in the context. It is
// called each time the route is read, so it may return a pattern that is only
// known after routing.
func WithHTTPRoute(ctx context.Context, route func() string) context.Context {
	return context.WithValue(ctx, httpRouteKey, route)
}

// HTTPRouteFromContext returns the HTTP route, or "" when none was stored
func HTTPRouteFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(httpRouteKey).(func() string); ok && route != nil {
		return route()
	}
	return ""
}

// requestContextHandler decorates records with the span, request id and route
// carried by ctx
type requestContextHandler struct {
	handler slog.Handler
}

func (h *requestContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *requestContextHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}

	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		r.AddAttrs(slog.String("request_id", reqID))
	}

	if route := HTTPRouteFromContext(ctx); route != "" {
		r.AddAttrs(slog.String("http.route", route))
	}

	return h.handler.Handle(ctx, r)
}

func (h *requestContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &requestContextHandler{
		handler: h.handler.WithAttrs(attrs),
	}
}

func (h *requestContextHandler) WithGroup(name string) slog.Handler {
	return &requestContextHandler{
		handler: h.handler.WithGroup(name),
	}
}

// initLogger writes JSON logs to w, tagged with the service identity
func initLogger(w io.Writer, cfg *config.OTLPConfig) *slog.Logger {
	handler := &requestContextHandler{
		handler: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}

	return slog.New(handler).With(
		slog.String("service.name", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)
}
