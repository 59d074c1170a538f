package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// VisitorHeader carries the anonymous visitor id used for preference and consent state.
const VisitorHeader = "X-Visitor-ID"

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// Allowed methods and headers cover the full REST surface of the API.
// Credentials are allowed so the visitor cookie survives cross-origin calls.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", VisitorHeader},
		ExposedHeaders:   []string{VisitorHeader, "X-Total-Count"},
		AllowCredentials: true,
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
