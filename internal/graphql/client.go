package graphql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joestump/gqlboot/internal/cache"
	"github.com/joestump/gqlboot/internal/metrics"
)

// FetchPolicy decides whether a query is answered from the cache, the
// network, or both.
type FetchPolicy string

const (
	// CacheFirst answers from the cache and only goes to the network on a miss.
	CacheFirst FetchPolicy = "cache-first"
	// NetworkOnly always goes to the network and writes the result to the cache.
	NetworkOnly FetchPolicy = "network-only"
	// CacheOnly never goes to the network.
	CacheOnly FetchPolicy = "cache-only"
	// NoCache always goes to the network and leaves the cache alone.
	NoCache FetchPolicy = "no-cache"
)

// FetchPolicies lists every supported fetch policy.
var FetchPolicies = []FetchPolicy{CacheFirst, NetworkOnly, CacheOnly, NoCache}

// ErrorPolicy decides what a query or mutation returns when the response
// carries GraphQL errors.
type ErrorPolicy string

const (
	// ErrorPolicyNone turns GraphQL errors into a *ClientError and drops data.
	ErrorPolicyNone ErrorPolicy = "none"
	// ErrorPolicyIgnore drops GraphQL errors and returns whatever data came back.
	ErrorPolicyIgnore ErrorPolicy = "ignore"
	// ErrorPolicyAll returns data and GraphQL errors together.
	ErrorPolicyAll ErrorPolicy = "all"
)

// ErrCacheMiss is returned by a cache-only query with nothing cached.
var ErrCacheMiss = errors.New("graphql: no cached result for query")

// ErrInvalidPolicy is returned for a fetch or error policy the client does
// not know.
var ErrInvalidPolicy = errors.New("graphql: unknown policy")

// ErrNoData is returned by Result.Decode when the result carries no data.
var ErrNoData = errors.New("graphql: result has no data")

// Options configures a Client.
type Options struct {
	Link  Link
	Cache cache.Store
	// CacheTTL is applied to every cache write; zero keeps entries until reset.
	CacheTTL           time.Duration
	DefaultFetchPolicy FetchPolicy
	DefaultErrorPolicy ErrorPolicy
	Logger             *slog.Logger
}

// Client issues operations through a link chain and keeps query results in a
// cache. It is safe for concurrent use.
type Client struct {
	link        Link
	cache       cache.Store
	ttl         time.Duration
	fetchPolicy FetchPolicy
	errorPolicy ErrorPolicy
	logger      *slog.Logger
}

// NewClient builds a Client. Both Link and Cache are required.
func NewClient(opts Options) (*Client, error) {
	if opts.Link == nil {
		return nil, fmt.Errorf("graphql: a link is required to build a client")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("graphql: a cache is required to build a client")
	}

	fp := opts.DefaultFetchPolicy
	if fp == "" {
		fp = CacheFirst
	}
	if !validFetchPolicy(fp) {
		return nil, fmt.Errorf("%w: fetch policy %q", ErrInvalidPolicy, fp)
	}
	ep := opts.DefaultErrorPolicy
	if ep == "" {
		ep = ErrorPolicyNone
	}
	if !validErrorPolicy(ep) {
		return nil, fmt.Errorf("%w: error policy %q", ErrInvalidPolicy, ep)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		link:        opts.Link,
		cache:       opts.Cache,
		ttl:         opts.CacheTTL,
		fetchPolicy: fp,
		errorPolicy: ep,
		logger:      logger,
	}, nil
}

// QueryOptions describes a query. Empty policies fall back to the client's
// defaults.
type QueryOptions struct {
	Query         string
	Variables     map[string]any
	OperationName string
	FetchPolicy   FetchPolicy
	ErrorPolicy   ErrorPolicy
}

// MutateOptions describes a mutation.
type MutateOptions struct {
	Mutation      string
	Variables     map[string]any
	OperationName string
	ErrorPolicy   ErrorPolicy
}

// Result is what a query or mutation hands back to the caller.
type Result struct {
	Data      json.RawMessage `json:"data,omitempty"`
	Errors    []GraphQLError  `json:"errors,omitempty"`
	FromCache bool            `json:"fromCache"`
}

// Decode unmarshals the result data into v.
func (r *Result) Decode(v any) error {
	if r == nil || !hasData(r.Data) {
		return ErrNoData
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("graphql: decode data: %w", err)
	}
	return nil
}

// Query runs a query under its fetch policy. Error-free network results are
// cached unless the policy is no-cache.
func (c *Client) Query(ctx context.Context, opts QueryOptions) (*Result, error) {
	if opts.Query == "" {
		return nil, fmt.Errorf("graphql: query is required")
	}
	fp := opts.FetchPolicy
	if fp == "" {
		fp = c.fetchPolicy
	}
	if !validFetchPolicy(fp) {
		return nil, fmt.Errorf("%w: fetch policy %q", ErrInvalidPolicy, fp)
	}
	ep, err := c.resolveErrorPolicy(opts.ErrorPolicy)
	if err != nil {
		return nil, err
	}

	key := CacheKey(opts.OperationName, opts.Query, opts.Variables)

	if fp == CacheFirst || fp == CacheOnly {
		data, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			metrics.OperationsTotal.WithLabelValues("query", "cache_hit").Inc()
			return &Result{Data: data, FromCache: true}, nil
		case errors.Is(err, cache.ErrNotFound):
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		default:
			metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
			if fp == CacheOnly {
				return nil, fmt.Errorf("graphql: read cache: %w", err)
			}
			c.logger.Warn("cache read failed, going to network", "key", key, "err", err)
		}
		if fp == CacheOnly {
			return nil, ErrCacheMiss
		}
	}

	op := NewOperation(opts.Query, opts.Variables, opts.OperationName)
	resp, err := c.send(ctx, "query", op)
	if err == nil && fp != NoCache && len(resp.Errors) == 0 && hasData(resp.Data) {
		if werr := c.cache.Set(ctx, key, resp.Data, c.ttl); werr != nil {
			c.logger.Warn("cache write failed", "key", key, "err", werr)
		}
	}
	return settle(resp, err, ep)
}

// Mutate sends a mutation. Mutations never read or write the cache.
func (c *Client) Mutate(ctx context.Context, opts MutateOptions) (*Result, error) {
	if opts.Mutation == "" {
		return nil, fmt.Errorf("graphql: mutation is required")
	}
	ep, err := c.resolveErrorPolicy(opts.ErrorPolicy)
	if err != nil {
		return nil, err
	}

	op := NewOperation(opts.Mutation, opts.Variables, opts.OperationName)
	resp, err := c.send(ctx, "mutation", op)
	return settle(resp, err, ep)
}

// ResetStore empties the result cache.
func (c *Client) ResetStore(ctx context.Context) error {
	if err := c.cache.Reset(ctx); err != nil {
		return fmt.Errorf("graphql: reset store: %w", err)
	}
	c.logger.Info("graphql cache reset")
	return nil
}

func (c *Client) send(ctx context.Context, kind string, op *Operation) (*Response, error) {
	start := time.Now()
	resp, err := Execute(ctx, c.link, op)
	elapsed := time.Since(start)
	metrics.OperationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "network_error"
	case resp == nil:
		// A link returned neither a response nor an error.
		err = &NetworkError{Err: errors.New("link chain returned no response")}
		outcome = "network_error"
	case len(resp.Errors) > 0:
		outcome = "graphql_error"
		metrics.GraphQLErrorsTotal.Add(float64(len(resp.Errors)))
	}
	metrics.OperationsTotal.WithLabelValues(kind, outcome).Inc()

	c.logger.Debug("graphql operation",
		"id", op.ID.String(),
		"kind", kind,
		"operation", op.OperationName,
		"outcome", outcome,
		"duration", elapsed,
	)
	return resp, err
}

// settle applies the error policy to a link chain outcome.
func settle(resp *Response, err error, ep ErrorPolicy) (*Result, error) {
	if err != nil {
		ce := &ClientError{NetworkError: err}
		var netErr *NetworkError
		if errors.As(err, &netErr) && netErr.Result != nil {
			ce.GraphQLErrors = netErr.Result.Errors
		}
		return nil, ce
	}

	if len(resp.Errors) == 0 {
		return &Result{Data: resp.Data}, nil
	}
	switch ep {
	case ErrorPolicyIgnore:
		return &Result{Data: resp.Data}, nil
	case ErrorPolicyAll:
		return &Result{Data: resp.Data, Errors: resp.Errors}, nil
	default:
		return nil, &ClientError{GraphQLErrors: resp.Errors}
	}
}

func (c *Client) resolveErrorPolicy(ep ErrorPolicy) (ErrorPolicy, error) {
	if ep == "" {
		return c.errorPolicy, nil
	}
	if !validErrorPolicy(ep) {
		return "", fmt.Errorf("%w: error policy %q", ErrInvalidPolicy, ep)
	}
	return ep, nil
}

// CacheKey identifies a query result: the operation name, the query text and
// the variables, which encoding/json serialises with sorted keys.
func CacheKey(operationName, query string, variables map[string]any) string {
	h := sha256.New()
	h.Write([]byte(operationName))
	h.Write([]byte{0})
	h.Write([]byte(query))
	h.Write([]byte{0})
	if len(variables) > 0 {
		vars, err := json.Marshal(variables)
		if err != nil {
			vars = []byte(fmt.Sprintf("%v", variables))
		}
		h.Write(vars)
	}
	return "query:" + hex.EncodeToString(h.Sum(nil))
}

func validFetchPolicy(fp FetchPolicy) bool {
	for _, p := range FetchPolicies {
		if p == fp {
			return true
		}
	}
	return false
}

func validErrorPolicy(ep ErrorPolicy) bool {
	switch ep {
	case ErrorPolicyNone, ErrorPolicyIgnore, ErrorPolicyAll:
		return true
	}
	return false
}
