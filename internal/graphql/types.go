// Package graphql is the GraphQL client used by gqlboot: an ordered chain of
// links ending in an HTTP transport, plus a result cache in front of it.
package graphql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Location points at the line and column of the query text an error refers to.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// String renders the location as "line:column".
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// GraphQLError is a single entry of the "errors" list of a GraphQL response.
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }

// Response is the JSON body shape of a GraphQL HTTP response.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// Operation is a single request travelling through a link chain. Links may
// read and annotate Context; everything else is fixed once the operation is
// created.
type Operation struct {
	ID            uuid.UUID
	OperationName string
	Query         string
	Variables     map[string]any
	Context       map[string]any
}

// NewOperation builds an Operation with a fresh ID.
func NewOperation(query string, variables map[string]any, operationName string) *Operation {
	return &Operation{
		ID:            uuid.New(),
		OperationName: operationName,
		Query:         query,
		Variables:     variables,
		Context:       map[string]any{},
	}
}

// NetworkError reports that no usable GraphQL response came back: the request
// could not be sent, the server answered with a non-2xx status, or the body
// was not a GraphQL response. When a non-2xx body still decodes as a GraphQL
// response it is kept in Result.
type NetworkError struct {
	StatusCode int
	Err        error
	Result     *Response
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("unexpected HTTP status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "network error"
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ClientError is returned by Client when an operation fails under the
// "none" error policy, or whenever a network error occurs.
type ClientError struct {
	GraphQLErrors []GraphQLError
	NetworkError  error
}

func (e *ClientError) Error() string {
	parts := make([]string, 0, len(e.GraphQLErrors)+1)
	for _, ge := range e.GraphQLErrors {
		parts = append(parts, "graphql error: "+ge.Message)
	}
	if e.NetworkError != nil {
		parts = append(parts, "network error: "+e.NetworkError.Error())
	}
	if len(parts) == 0 {
		return "graphql: operation failed"
	}
	return strings.Join(parts, "; ")
}

func (e *ClientError) Unwrap() error { return e.NetworkError }

// hasData reports whether a raw "data" member carries a value.
func hasData(data json.RawMessage) bool {
	return len(data) > 0 && string(data) != "null"
}
