// Package api exposes the provided GraphQL client as a small JSON API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewAPIRouter creates a chi sub-router for /api. Handlers use the client
// placed on the request context by provider.Provide.
func NewAPIRouter() chi.Router {
	r := chi.NewRouter()

	// All API responses are JSON.
	r.Use(jsonContentType)

	r.Post("/graphql", Execute)

	return r
}

// jsonContentType is a middleware that sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
