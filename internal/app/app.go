// Package app builds the application once at startup: the cache store, the
// link chain, the single GraphQL client, sessions and the view tree.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/joestump/gqlboot/internal/cache"
	"github.com/joestump/gqlboot/internal/cache/redis"
	"github.com/joestump/gqlboot/internal/cache/sqlstore"
	"github.com/joestump/gqlboot/internal/config"
	"github.com/joestump/gqlboot/internal/db"
	"github.com/joestump/gqlboot/internal/graphql"
	"github.com/joestump/gqlboot/internal/handler"
	"github.com/joestump/gqlboot/internal/metrics"
	"github.com/joestump/gqlboot/internal/session"
)

// pruneInterval is how often expired rows are removed from the SQL cache.
const pruneInterval = time.Minute

// Options tweaks how New builds the application.
type Options struct {
	Logger *slog.Logger
	// ErrorLog receives the error link's lines. Defaults to os.Stdout.
	ErrorLog io.Writer
	// HTTPClient replaces the client the HTTP link sends requests with.
	// Timeout and OAuth settings from the config are not applied to it.
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ErrorLog == nil {
		o.ErrorLog = os.Stdout
	}
	return o
}

// App is the assembled application.
type App struct {
	// Client is the one GraphQL client every component of the view tree uses.
	Client   *graphql.Client
	Sessions *scs.SessionManager

	cfg     *config.Config
	logger  *slog.Logger
	db      *sqlx.DB
	store   cache.Store
	handler http.Handler
	cancel  context.CancelFunc
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New builds the application from cfg. Everything is constructed exactly
// once; a failure at any step releases what was already opened.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	opts = opts.withDefaults()
	a := &App{cfg: cfg, logger: opts.Logger, done: make(chan struct{})}

	if cfg.UsesDB() {
		database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(database, cfg.DB.Driver); err != nil {
			_ = database.Close()
			return nil, err
		}
		a.db = database
	}

	store, err := newStore(ctx, cfg, a.db)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.store = store

	client, err := newClient(ctx, cfg, store, opts)
	if err != nil {
		a.closeStore()
		a.closeDB()
		return nil, err
	}
	a.Client = client

	a.Sessions = session.NewManager(a.db, cfg.DB.Driver, cfg.SessionLifetime, cfg.SecureCookies)
	a.handler = handler.NewRouter(handler.Deps{
		Client:         client,
		SessionManager: a.Sessions,
		Layout:         handler.Layout{MountID: cfg.MountID},
	})

	bg, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if s, ok := store.(*sqlstore.Store); ok {
		go a.runPruner(bg, s)
	} else {
		close(a.done)
	}

	opts.Logger.Info("app ready",
		"endpoint", cfg.GraphQL.Endpoint,
		"cache", cfg.Cache.Backend,
		"mount_id", cfg.MountID,
	)
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Close stops background work and releases the cache store and database.
// Calls after the first return the first result.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		<-a.done
		session.StopCleanup(a.Sessions)
		a.closeErr = errors.Join(a.closeStore(), a.closeDB())
	})
	return a.closeErr
}

func (a *App) closeStore() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *App) closeDB() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// runPruner periodically deletes expired SQL cache rows until ctx is done.
func (a *App) runPruner(ctx context.Context, s *sqlstore.Store) {
	defer close(a.done)
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PruneExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn("cache prune failed", "err", err)
				}
				continue
			}
			if n > 0 {
				a.logger.Debug("cache pruned", "rows", n)
			}
		}
	}
}

// NewClient builds a standalone client for one-shot use, such as the query
// command. Its cache is always in memory. ctx must outlive the client when
// OAuth is configured, because token refreshes use it.
func NewClient(ctx context.Context, cfg *config.Config, opts Options) (*graphql.Client, error) {
	return newClient(ctx, cfg, cache.NewMemory(), opts.withDefaults())
}

func newClient(ctx context.Context, cfg *config.Config, store cache.Store, opts Options) (*graphql.Client, error) {
	httpLink, err := graphql.NewHTTPLink(graphql.HTTPLinkOptions{
		URI:     cfg.GraphQL.Endpoint,
		Headers: cfg.GraphQL.Headers,
		Client:  newHTTPClient(ctx, cfg, opts.HTTPClient),
	})
	if err != nil {
		return nil, err
	}

	return graphql.NewClient(graphql.Options{
		Link:     graphql.From(graphql.OnError(graphql.LogErrors(opts.ErrorLog)), httpLink),
		Cache:    store,
		CacheTTL: cfg.Cache.TTL,
		Logger:   opts.Logger,
	})
}

// newHTTPClient returns the client the HTTP link sends with: an instrumented
// transport, wrapped in an OAuth2 client-credentials transport when a token
// URL is configured.
func newHTTPClient(ctx context.Context, cfg *config.Config, override *http.Client) *http.Client {
	if override != nil {
		return override
	}

	hc := &http.Client{
		Transport: metrics.InstrumentRoundTripper(http.DefaultTransport),
		Timeout:   cfg.GraphQL.Timeout,
	}
	oc := cfg.GraphQL.OAuth
	if oc.TokenURL == "" {
		return hc
	}

	cc := clientcredentials.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		TokenURL:     oc.TokenURL,
		Scopes:       oc.Scopes,
	}
	authed := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, hc))
	authed.Timeout = cfg.GraphQL.Timeout
	return authed
}

func newStore(ctx context.Context, cfg *config.Config, database *sqlx.DB) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case config.CacheSQL:
		if database == nil {
			return nil, fmt.Errorf("app: sql cache backend needs a database")
		}
		return sqlstore.New(database), nil
	default:
		return cache.NewMemory(), nil
	}
}
