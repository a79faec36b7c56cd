package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/joestump/gqlboot/internal/graphql"
	"github.com/joestump/gqlboot/internal/provider"
)

// maxRequestBody caps the size of an operation posted to the API.
const maxRequestBody = 1 << 20

// OperationRequest is the body of POST /api/graphql.
type OperationRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
	FetchPolicy   string         `json:"fetchPolicy,omitempty"`
	ErrorPolicy   string         `json:"errorPolicy,omitempty"`
}

// OperationResponse is the body returned for an executed operation.
type OperationResponse struct {
	Data      json.RawMessage        `json:"data,omitempty"`
	Errors    []graphql.GraphQLError `json:"errors,omitempty"`
	FromCache bool                   `json:"fromCache"`
}

// Execute handles POST /api/graphql. Queries go through Query with the
// requested policies; any other operation goes through Mutate and skips the
// cache.
//
// Status codes: 400 for malformed requests or policies, 502 when the
// upstream could not be reached or answered badly, 422 when the upstream
// answered with GraphQL errors under the "none" error policy, 404 on a
// cache-only miss.
func Execute(w http.ResponseWriter, r *http.Request) {
	client := provider.ClientFromContext(r.Context())
	if client == nil {
		writeError(w, http.StatusInternalServerError, "graphql client not provided", "no_client")
		return
	}

	var req OperationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required", "bad_request")
		return
	}

	var (
		res *graphql.Result
		err error
	)
	if graphql.OperationKind(req.Query, req.OperationName) != graphql.OperationQuery {
		res, err = client.Mutate(r.Context(), graphql.MutateOptions{
			Mutation:      req.Query,
			Variables:     req.Variables,
			OperationName: req.OperationName,
			ErrorPolicy:   graphql.ErrorPolicy(req.ErrorPolicy),
		})
	} else {
		res, err = client.Query(r.Context(), graphql.QueryOptions{
			Query:         req.Query,
			Variables:     req.Variables,
			OperationName: req.OperationName,
			FetchPolicy:   graphql.FetchPolicy(req.FetchPolicy),
			ErrorPolicy:   graphql.ErrorPolicy(req.ErrorPolicy),
		})
	}
	if err != nil {
		writeClientError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OperationResponse{
		Data:      res.Data,
		Errors:    res.Errors,
		FromCache: res.FromCache,
	})
}

func writeClientError(w http.ResponseWriter, err error) {
	var ce *graphql.ClientError
	var ne *graphql.NetworkError
	switch {
	case errors.Is(err, graphql.ErrInvalidPolicy):
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
	case errors.Is(err, graphql.ErrCacheMiss):
		writeError(w, http.StatusNotFound, err.Error(), "cache_miss")
	case errors.As(err, &ne):
		writeError(w, http.StatusBadGateway, err.Error(), "network_error")
	case errors.As(err, &ce):
		writeJSON(w, http.StatusUnprocessableEntity, OperationResponse{Errors: ce.GraphQLErrors})
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "internal_error")
	}
}
