package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/gqlboot/internal/graphql"
	"github.com/joestump/gqlboot/internal/provider"
	"github.com/joestump/gqlboot/internal/session"
)

const defaultExplorerQuery = "{\n  __typename\n}"

// QueryOutcome is what the result panel shows after running an operation.
type QueryOutcome struct {
	Ran          bool
	FromCache    bool
	DataJSON     string
	Errors       []graphql.GraphQLError
	NetworkError string
	Problem      string // input problems, shown instead of a result
}

// ExplorerPage is the template data for the query explorer.
type ExplorerPage struct {
	BasePage
	Query       string
	Variables   string
	FetchPolicy string
	Policies    []graphql.FetchPolicy
	Recent      []string
	Outcome     QueryOutcome
}

// ExplorerHandler serves the App component: a form that runs operations
// through the provided client.
type ExplorerHandler struct {
	layout   Layout
	sessions *scs.SessionManager
}

// NewExplorerHandler creates a new ExplorerHandler.
func NewExplorerHandler(l Layout, sm *scs.SessionManager) *ExplorerHandler {
	return &ExplorerHandler{layout: l, sessions: sm}
}

func (h *ExplorerHandler) page(r *http.Request) ExplorerPage {
	return ExplorerPage{
		BasePage:    newBasePage(r, h.layout, "Explorer"),
		Query:       defaultExplorerQuery,
		FetchPolicy: string(graphql.CacheFirst),
		Policies:    graphql.FetchPolicies,
		Recent:      session.RecentQueries(r.Context(), h.sessions),
	}
}

// Show serves GET /. ?q= preloads a query, e.g. from the recent list.
func (h *ExplorerHandler) Show(w http.ResponseWriter, r *http.Request) {
	data := h.page(r)
	if q := r.URL.Query().Get("q"); q != "" {
		data.Query = q
	}
	render(w, http.StatusOK, "explorer.html", data)
}

// Run serves POST /query. Queries honour the chosen fetch policy; mutations
// always go to the network.
func (h *ExplorerHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	data := h.page(r)
	data.Query = r.FormValue("query")
	data.Variables = r.FormValue("variables")
	if fp := r.FormValue("fetch_policy"); fp != "" {
		data.FetchPolicy = fp
	}

	status := http.StatusOK
	vars, problem := parseVariables(data.Variables)
	switch {
	case strings.TrimSpace(data.Query) == "":
		problem = "Enter a query to run."
	case !knownPolicy(data.FetchPolicy):
		problem = "Unknown fetch policy " + data.FetchPolicy + "."
	}

	if problem != "" {
		status = http.StatusBadRequest
		data.Outcome = QueryOutcome{Problem: problem}
	} else {
		client := provider.ClientFromContext(r.Context())
		if client == nil {
			http.Error(w, "graphql client not provided", http.StatusInternalServerError)
			return
		}

		var res *graphql.Result
		var err error
		if graphql.OperationKind(data.Query, "") != graphql.OperationQuery {
			res, err = client.Mutate(r.Context(), graphql.MutateOptions{
				Mutation:    data.Query,
				Variables:   vars,
				ErrorPolicy: graphql.ErrorPolicyAll,
			})
		} else {
			res, err = client.Query(r.Context(), graphql.QueryOptions{
				Query:       data.Query,
				Variables:   vars,
				FetchPolicy: graphql.FetchPolicy(data.FetchPolicy),
				ErrorPolicy: graphql.ErrorPolicyAll,
			})
		}
		data.Outcome = outcomeOf(res, err)
		session.PushRecentQuery(r.Context(), h.sessions, data.Query)
		data.Recent = session.RecentQueries(r.Context(), h.sessions)
	}

	if isHTMX(r) {
		renderFragment(w, status, "query_result", data.Outcome)
		return
	}
	render(w, status, "explorer.html", data)
}

func outcomeOf(res *graphql.Result, err error) QueryOutcome {
	out := QueryOutcome{Ran: true}
	if err != nil {
		var ce *graphql.ClientError
		switch {
		case errors.As(err, &ce):
			out.Errors = ce.GraphQLErrors
			if ce.NetworkError != nil {
				out.NetworkError = ce.NetworkError.Error()
			}
		case errors.Is(err, graphql.ErrCacheMiss):
			out.Problem = "Nothing cached for this query yet."
		default:
			out.NetworkError = err.Error()
		}
		return out
	}

	out.FromCache = res.FromCache
	out.Errors = res.Errors
	if len(res.Data) > 0 && string(res.Data) != "null" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, res.Data, "", "  "); err != nil {
			out.DataJSON = string(res.Data)
		} else {
			out.DataJSON = buf.String()
		}
	}
	return out
}

func parseVariables(raw string) (map[string]any, string) {
	if strings.TrimSpace(raw) == "" {
		return nil, ""
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, "Variables must be a JSON object: " + err.Error()
	}
	return vars, ""
}

func knownPolicy(p string) bool {
	for _, fp := range graphql.FetchPolicies {
		if string(fp) == p {
			return true
		}
	}
	return false
}
