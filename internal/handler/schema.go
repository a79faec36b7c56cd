package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/joestump/gqlboot/internal/graphql"
	"github.com/joestump/gqlboot/internal/provider"
)

const introspectionQuery = `query IntrospectSchema {
  __schema {
    queryType { name }
    mutationType { name }
    types { name kind description }
  }
}`

// SchemaType is one named type of the remote schema.
type SchemaType struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

type introspection struct {
	Schema struct {
		QueryType    *struct{ Name string } `json:"queryType"`
		MutationType *struct{ Name string } `json:"mutationType"`
		Types        []SchemaType           `json:"types"`
	} `json:"__schema"`
}

// SchemaPage is the template data for the schema view.
type SchemaPage struct {
	BasePage
	QueryType    string
	MutationType string
	Types        []SchemaType
	Outcome      QueryOutcome
}

// SchemaHandler lists the types of the remote schema.
type SchemaHandler struct {
	layout Layout
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(l Layout) *SchemaHandler {
	return &SchemaHandler{layout: l}
}

// Show serves GET /schema. ?refresh=1 bypasses the cache.
func (h *SchemaHandler) Show(w http.ResponseWriter, r *http.Request) {
	client := provider.ClientFromContext(r.Context())
	if client == nil {
		http.Error(w, "graphql client not provided", http.StatusInternalServerError)
		return
	}

	policy := graphql.CacheFirst
	if r.URL.Query().Get("refresh") != "" {
		policy = graphql.NetworkOnly
	}

	data := SchemaPage{BasePage: newBasePage(r, h.layout, "Schema")}
	res, err := client.Query(r.Context(), graphql.QueryOptions{
		Query:         introspectionQuery,
		OperationName: "IntrospectSchema",
		FetchPolicy:   policy,
	})
	if err != nil {
		data.Outcome = outcomeOf(nil, err)
		render(w, http.StatusBadGateway, "schema.html", data)
		return
	}

	var in introspection
	if err := res.Decode(&in); err != nil {
		data.Outcome = QueryOutcome{Ran: true, Problem: "Could not read the introspection result: " + err.Error()}
		render(w, http.StatusBadGateway, "schema.html", data)
		return
	}

	if in.Schema.QueryType != nil {
		data.QueryType = in.Schema.QueryType.Name
	}
	if in.Schema.MutationType != nil {
		data.MutationType = in.Schema.MutationType.Name
	}
	for _, t := range in.Schema.Types {
		if !strings.HasPrefix(t.Name, "__") {
			data.Types = append(data.Types, t)
		}
	}
	sort.Slice(data.Types, func(i, j int) bool { return data.Types[i].Name < data.Types[j].Name })
	data.Outcome = QueryOutcome{Ran: true, FromCache: res.FromCache}

	render(w, http.StatusOK, "schema.html", data)
}
