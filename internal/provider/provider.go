// Package provider makes the application's GraphQL client ambient to every
// handler of the view tree through the request context.
package provider

import (
	"context"
	"net/http"

	"github.com/joestump/gqlboot/internal/graphql"
)

type contextKey string

const ClientContextKey contextKey = "graphql_client"

// Provide returns middleware that places c on every request context.
// Handlers read it back with ClientFromContext and never build their own.
func Provide(c *graphql.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), c)))
		})
	}
}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *graphql.Client) context.Context {
	return context.WithValue(ctx, ClientContextKey, c)
}

// ClientFromContext retrieves the provided client, or nil outside a provider.
func ClientFromContext(ctx context.Context) *graphql.Client {
	c, _ := ctx.Value(ClientContextKey).(*graphql.Client)
	return c
}
