package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/gqlboot/internal/testutil"
)

// inSession runs fn inside a request whose session sm has loaded.
func inSession(t *testing.T, sm *scs.SessionManager, fn func(ctx context.Context)) {
	t.Helper()
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestPushRecentQuery_NewestFirstAndDeduped(t *testing.T) {
	sm := NewManager(nil, "", time.Hour, false)
	inSession(t, sm, func(ctx context.Context) {
		PushRecentQuery(ctx, sm, "{ a }")
		PushRecentQuery(ctx, sm, "{ b }")
		PushRecentQuery(ctx, sm, "{ a }")
		PushRecentQuery(ctx, sm, "")

		got := RecentQueries(ctx, sm)
		want := []string{"{ a }", "{ b }"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("recent = %v, want %v", got, want)
		}
	})
}

func TestPushRecentQuery_Bounded(t *testing.T) {
	sm := NewManager(nil, "", time.Hour, false)
	inSession(t, sm, func(ctx context.Context) {
		for i := 0; i < MaxRecentQueries+5; i++ {
			PushRecentQuery(ctx, sm, fmt.Sprintf("{ q%d }", i))
		}
		got := RecentQueries(ctx, sm)
		if len(got) != MaxRecentQueries {
			t.Fatalf("len = %d, want %d", len(got), MaxRecentQueries)
		}
		if got[0] != fmt.Sprintf("{ q%d }", MaxRecentQueries+4) {
			t.Errorf("newest = %q", got[0])
		}
	})
}

func TestRecentQueries_EmptySession(t *testing.T) {
	sm := NewManager(nil, "", time.Hour, false)
	inSession(t, sm, func(ctx context.Context) {
		if got := RecentQueries(ctx, sm); got != nil {
			t.Errorf("recent = %v, want nil", got)
		}
	})
}

func TestNewManager_Cookie(t *testing.T) {
	sm := NewManager(nil, "", 0, true)
	if sm.Cookie.Name != "gqlboot_session" || !sm.Cookie.Secure || !sm.Cookie.HttpOnly {
		t.Errorf("cookie = %+v", sm.Cookie)
	}
	if sm.Lifetime != 24*time.Hour {
		t.Errorf("zero lifetime should keep the scs default, got %v", sm.Lifetime)
	}
}

func TestNewManager_SQLiteStorePersistsAcrossRequests(t *testing.T) {
	sm := NewManager(testutil.NewTestDB(t), "sqlite3", time.Hour, false)

	push := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		PushRecentQuery(r.Context(), sm, "{ stored }")
	}))
	rec := httptest.NewRecorder()
	push.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}

	var got []string
	read := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RecentQueries(r.Context(), sm)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	read.ServeHTTP(httptest.NewRecorder(), req)

	if !reflect.DeepEqual(got, []string{"{ stored }"}) {
		t.Errorf("recent = %v, want the stored query", got)
	}
}

func TestStopCleanup_Returns(t *testing.T) {
	tests := []struct {
		name string
		sm   func(t *testing.T) *scs.SessionManager
	}{
		{name: "memstore", sm: func(*testing.T) *scs.SessionManager { return NewManager(nil, "", time.Hour, false) }},
		{name: "sqlite3store", sm: func(t *testing.T) *scs.SessionManager {
			return NewManager(testutil.NewTestDB(t), "sqlite3", time.Hour, false)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := tt.sm(t)
			done := make(chan struct{})
			go func() {
				StopCleanup(sm)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("StopCleanup did not return")
			}
		})
	}
}
