package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joestump/gqlboot/internal/cache"
	"github.com/joestump/gqlboot/internal/graphql"
	"github.com/joestump/gqlboot/internal/logging"
	"github.com/joestump/gqlboot/internal/session"
)

const schemaBody = `{"data":{"__schema":{
	"queryType":{"name":"Query"},
	"mutationType":null,
	"types":[
		{"name":"User","kind":"OBJECT","description":"A person"},
		{"name":"__Type","kind":"OBJECT","description":null},
		{"name":"Query","kind":"OBJECT","description":null},
		{"name":"ID","kind":"SCALAR","description":null}
	]}}}`

type routerTestEnv struct {
	router http.Handler
	calls  *atomic.Int32
}

// newRouterTestEnv builds the full router in front of a fake upstream that
// answers introspection with schemaBody and everything else with reply.
func newRouterTestEnv(t *testing.T, reply string) *routerTestEnv {
	t.Helper()
	calls := &atomic.Int32{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), "__schema") {
			io.WriteString(w, schemaBody)
			return
		}
		io.WriteString(w, reply)
	}))
	t.Cleanup(upstream.Close)

	link, err := graphql.NewHTTPLink(graphql.HTTPLinkOptions{URI: upstream.URL})
	if err != nil {
		t.Fatalf("NewHTTPLink: %v", err)
	}
	client, err := graphql.NewClient(graphql.Options{
		Link:   graphql.From(graphql.OnError(graphql.LogErrors(io.Discard)), link),
		Cache:  cache.NewMemory(),
		Logger: logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	router := NewRouter(Deps{
		Client:         client,
		SessionManager: session.NewManager(nil, "", time.Hour, false),
		Layout:         Layout{MountID: "root"},
	})
	return &routerTestEnv{router: router, calls: calls}
}

func (e *routerTestEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestExplorer_Show(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{}}`)

	rec := env.do(httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<div id="root">`) {
		t.Error("page is not mounted into #root")
	}
	for _, fp := range graphql.FetchPolicies {
		if !strings.Contains(body, `value="`+string(fp)+`"`) {
			t.Errorf("fetch policy %q missing from form", fp)
		}
	}
}

func TestExplorer_Show_CustomMountID(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{}}`)
	env.router = NewRouter(Deps{
		Client:         nil,
		SessionManager: session.NewManager(nil, "", time.Hour, false),
		Layout:         Layout{MountID: "app"},
	})

	rec := env.do(httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(rec.Body.String(), `<div id="app">`) {
		t.Error("page is not mounted into #app")
	}
}

func TestExplorer_Run(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{"user":{"name":"Ada"}}}`)

	rec := env.do(formRequest("/query", url.Values{
		"query":        {"{ user { name } }"},
		"fetch_policy": {"network-only"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "&#34;name&#34;: &#34;Ada&#34;") {
		t.Errorf("result data not rendered: %s", body)
	}
	if !strings.Contains(body, "<html") {
		t.Error("non-HTMX request should get the full page")
	}
}

func TestExplorer_Run_HTMXFragment(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{"n":1}}`)

	req := formRequest("/query", url.Values{"query": {"{ n }"}})
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("HTMX request should get a fragment")
	}
	if !strings.Contains(body, `id="query-result"`) {
		t.Errorf("fragment missing result section: %s", body)
	}
}

func TestExplorer_Run_ShowsGraphQLErrors(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":null,"errors":[{"message":"Not found","locations":[{"line":2,"column":3}],"path":["user",0]}]}`)

	req := formRequest("/query", url.Values{"query": {"{ user { id } }"}})
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	body := rec.Body.String()
	for _, want := range []string{"Not found", "at 2:3", "path user.0"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %s", want, body)
		}
	}
}

func TestExplorer_Run_CachesBetweenRequests(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{"n":1}}`)

	for i := 0; i < 2; i++ {
		env.do(formRequest("/query", url.Values{"query": {"{ n }"}}))
	}
	if got := env.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestExplorer_Run_CommentedMutationSkipsCache(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{"createUser":{"id":"1"}}}`)

	for i := 0; i < 2; i++ {
		env.do(formRequest("/query", url.Values{
			"query":        {"# add a user\nmutation { createUser { id } }"},
			"fetch_policy": {"cache-first"},
		}))
	}
	if got := env.calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestExplorer_Run_BadInput(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{}}`)
	tests := []struct {
		name   string
		values url.Values
		want   string
	}{
		{name: "empty query", values: url.Values{"query": {"  "}}, want: "Enter a query"},
		{name: "bad variables", values: url.Values{"query": {"{ a }"}, "variables": {"[1]"}}, want: "Variables must be a JSON object"},
		{name: "unknown policy", values: url.Values{"query": {"{ a }"}, "fetch_policy": {"sometimes"}}, want: "Unknown fetch policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(formRequest("/query", tt.values))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
	if got := env.calls.Load(); got != 0 {
		t.Errorf("upstream calls = %d, want 0", got)
	}
}

func TestExplorer_RecentQueries(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{"n":1}}`)

	rec := env.do(formRequest("/query", url.Values{"query": {"{ recentOne }"}}))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = env.do(req)
	if !strings.Contains(rec.Body.String(), "{ recentOne }") {
		t.Error("recent query not listed for the same session")
	}

	rec = env.do(httptest.NewRequest("GET", "/", nil))
	if strings.Contains(rec.Body.String(), "{ recentOne }") {
		t.Error("recent query leaked into a new session")
	}
}

func TestSchema_Show(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{}}`)

	rec := env.do(httptest.NewRequest("GET", "/schema", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, "__Type") {
		t.Error("introspection types should be hidden")
	}
	row := func(name string) int { return strings.Index(body, "<td><code>"+name+"</code></td>") }
	id, query, user := row("ID"), row("Query"), row("User")
	if id < 0 || query < 0 || user < 0 {
		t.Fatalf("types missing from page: %s", body)
	}
	if !(id < query && query < user) {
		t.Error("types are not sorted by name")
	}
}

func TestSchema_Show_Cached(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{}}`)

	env.do(httptest.NewRequest("GET", "/schema", nil))
	env.do(httptest.NewRequest("GET", "/schema", nil))
	if got := env.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	env.do(httptest.NewRequest("GET", "/schema?refresh=1", nil))
	if got := env.calls.Load(); got != 2 {
		t.Errorf("upstream calls after refresh = %d, want 2", got)
	}
}

func TestCache_Reset(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{"n":1}}`)

	env.do(formRequest("/query", url.Values{"query": {"{ n }"}}))

	rec := env.do(httptest.NewRequest("POST", "/cache/reset", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	env.do(formRequest("/query", url.Values{"query": {"{ n }"}}))
	if got := env.calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2 after reset", got)
	}
}

func TestTheme_Toggle(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{}}`)

	rec := env.do(formRequest("/theme", url.Values{"theme": {themeDark}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), themeDark) {
		t.Errorf("HX-Trigger = %q", rec.Header().Get("HX-Trigger"))
	}

	rec = env.do(formRequest("/theme", url.Values{"theme": {"neon"}}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHealthz(t *testing.T) {
	env := newRouterTestEnv(t, `{"data":{}}`)

	rec := env.do(httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
