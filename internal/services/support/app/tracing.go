package server

import (
	"net/http"

	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/emberworks/questline/internal/services/support/app"

// withTracing opens one span per request using the globally configured
// tracer provider. Without an exporter configured this is a no-op.
func withTracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
