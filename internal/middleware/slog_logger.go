// Package middleware provides the HTTP middleware stack of the Rainbow Tour Guides API.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewSlogLogger logs one line per request: 5xx at Error, 4xx at Warn, the
// rest at Info.
//
// The visitor id is taken from the response when the preference handlers
// issued a fresh one, otherwise from the request. Wire after
// chimiddleware.RequestID.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					attrs = append(attrs, "route", pattern)
				}
			}
			if visitor := visitorID(ww, r); visitor != "" {
				attrs = append(attrs, "visitor_id", visitor)
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.ErrorContext(r.Context(), "request", attrs...)
			case status >= http.StatusBadRequest:
				log.WarnContext(r.Context(), "request", attrs...)
			default:
				log.InfoContext(r.Context(), "request", attrs...)
			}
		})
	}
}

func visitorID(w http.ResponseWriter, r *http.Request) string {
	if id := w.Header().Get(VisitorHeader); id != "" {
		return id
	}
	return r.Header.Get(VisitorHeader)
}
