// Package session keeps per-browser UI state (the recent query list) in scs
// sessions.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/jmoiron/sqlx"
)

const (
	recentQueriesKey = "recent_queries"

	// MaxRecentQueries bounds the recent query list.
	MaxRecentQueries = 10
)

// NewManager creates an SCS session manager. With a database it uses the
// store matching driver ("mysql", "postgres", or "sqlite3"); with a nil
// database sessions live in memory.
func NewManager(db *sqlx.DB, driver string, lifetime time.Duration, secureCookies bool) *scs.SessionManager {
	sm := scs.New()
	switch {
	case db == nil:
		sm.Store = memstore.New()
	case driver == "mysql":
		sm.Store = mysqlstore.New(db.DB)
	case driver == "postgres":
		sm.Store = postgresstore.New(db.DB)
	default: // sqlite3
		sm.Store = sqlite3store.New(db.DB)
	}
	if lifetime > 0 {
		sm.Lifetime = lifetime
	}
	sm.Cookie.Name = "gqlboot_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}

// StopCleanup stops the background sweep of expired sessions that the scs
// stores run. Call it once, before the database is closed.
func StopCleanup(sm *scs.SessionManager) {
	if s, ok := sm.Store.(interface{ StopCleanup() }); ok {
		s.StopCleanup()
	}
}

// RecentQueries returns the queries run in this session, newest first.
func RecentQueries(ctx context.Context, sm *scs.SessionManager) []string {
	qs, _ := sm.Get(ctx, recentQueriesKey).([]string)
	return qs
}

// PushRecentQuery records query as the newest entry, dropping an older copy
// of the same text and anything past MaxRecentQueries.
func PushRecentQuery(ctx context.Context, sm *scs.SessionManager, query string) {
	if query == "" {
		return
	}
	prev := RecentQueries(ctx, sm)
	next := make([]string, 0, len(prev)+1)
	next = append(next, query)
	for _, q := range prev {
		if q != query && len(next) < MaxRecentQueries {
			next = append(next, q)
		}
	}
	sm.Put(ctx, recentQueriesKey, next)
}
