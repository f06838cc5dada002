package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type httpObserver interface {
	Start() func(method, route string, status int)
}

// Metrics records request counts and latency labelled by the chi route
// pattern, so ids never become label values.
func Metrics(observer httpObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := observer.Start()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			done(r.Method, route, rec.Status())
		})
	}
}
