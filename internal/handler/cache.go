package handler

import (
	"net/http"

	"github.com/joestump/gqlboot/internal/provider"
)

// CacheHandler manages the client's result cache.
type CacheHandler struct{}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler() *CacheHandler { return &CacheHandler{} }

// Reset serves POST /cache/reset and sends the browser back to the explorer.
func (h *CacheHandler) Reset(w http.ResponseWriter, r *http.Request) {
	client := provider.ClientFromContext(r.Context())
	if client == nil {
		http.Error(w, "graphql client not provided", http.StatusInternalServerError)
		return
	}
	if err := client.ResetStore(r.Context()); err != nil {
		http.Error(w, "could not reset cache", http.StatusInternalServerError)
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
