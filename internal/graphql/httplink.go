package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the GraphQL server the lab client talks to.
const DefaultEndpoint = "http://localhost:8000/graphql"

const defaultTimeout = 30 * time.Second

// HTTPLinkOptions configures an HTTPLink.
type HTTPLinkOptions struct {
	URI     string
	Headers map[string]string
	// Client is used as-is when set; Timeout is then ignored.
	Client  *http.Client
	Timeout time.Duration
}

// HTTPLink is the terminating link that POSTs operations to a GraphQL
// endpoint as JSON.
type HTTPLink struct {
	uri        string
	headers    map[string]string
	httpClient *http.Client
}

// NewHTTPLink builds an HTTPLink. It returns an error if URI is empty or not
// an absolute http(s) URL. When no Client is given, one is created with
// Timeout, or 30 seconds when Timeout is not positive.
func NewHTTPLink(opts HTTPLinkOptions) (*HTTPLink, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("graphql: URI is required")
	}
	u, err := url.Parse(opts.URI)
	if err != nil {
		return nil, fmt.Errorf("graphql: parse URI: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("graphql: URI must be an absolute http(s) URL, got %q", opts.URI)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPLink{uri: opts.URI, headers: headers, httpClient: client}, nil
}

// URI returns the endpoint the link posts to.
func (l *HTTPLink) URI() string { return l.uri }

// httpRequestBody is the JSON body shape for a GraphQL HTTP request.
type httpRequestBody struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Request sends op to the endpoint. Every failure to obtain a GraphQL
// response is returned as a *NetworkError.
func (l *HTTPLink) Request(ctx context.Context, op *Operation, _ NextLink) (*Response, error) {
	payload, err := json.Marshal(httpRequestBody{
		Query:         op.Query,
		Variables:     op.Variables,
		OperationName: op.OperationName,
	})
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.uri, bytes.NewReader(payload))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	var out Response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		netErr := &NetworkError{StatusCode: resp.StatusCode}
		if decodeErr == nil && (out.Data != nil || out.Errors != nil) {
			netErr.Result = &out
		}
		return nil, netErr
	}
	if decodeErr != nil {
		return nil, &NetworkError{Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if out.Data == nil && out.Errors == nil {
		return nil, &NetworkError{Err: errors.New("server response was missing data and errors")}
	}

	return &out, nil
}
