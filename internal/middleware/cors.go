package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

const defaultOrigin = "http://localhost:3000"

// CORS returns cors.Options for the browser front end. A wildcard origin
// disables credentials, since browsers reject that combination.
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Content-Disposition", "Retry-After"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	}
}
