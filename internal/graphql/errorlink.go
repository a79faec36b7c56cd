package graphql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrorResponse is what an ErrorHandler sees after an operation failed.
// GraphQLErrors comes from the response, or from the body of a failed HTTP
// response when the server still sent GraphQL errors.
type ErrorResponse struct {
	Operation     *Operation
	Response      *Response
	GraphQLErrors []GraphQLError
	NetworkError  error
}

// ErrorHandler observes a failed operation.
type ErrorHandler func(ErrorResponse)

// OnError returns a link that forwards every operation and calls handler when
// the result carries GraphQL errors or the rest of the chain failed. The
// response and error from the rest of the chain are returned untouched.
func OnError(handler ErrorHandler) Link {
	return LinkFunc(func(ctx context.Context, op *Operation, forward NextLink) (*Response, error) {
		resp, err := forward(ctx, op)

		er := ErrorResponse{Operation: op, Response: resp}
		if err != nil {
			er.NetworkError = err
			var netErr *NetworkError
			if errors.As(err, &netErr) && netErr.Result != nil {
				er.GraphQLErrors = netErr.Result.Errors
			}
		} else if resp != nil {
			er.GraphQLErrors = resp.Errors
		}

		if er.NetworkError != nil || len(er.GraphQLErrors) > 0 {
			handler(er)
		}
		return resp, err
	})
}

// LogErrors writes one line per GraphQL error to w. A network error is only
// written when GraphQL errors came with it.
func LogErrors(w io.Writer) ErrorHandler {
	var mu sync.Mutex
	return func(er ErrorResponse) {
		if len(er.GraphQLErrors) == 0 {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		for _, e := range er.GraphQLErrors {
			_, _ = fmt.Fprintf(w, "[GraphQL error]: Message: %s, Location: %s, Path: %s\n",
				e.Message, formatLocations(e.Locations), formatPath(e.Path))
		}
		if er.NetworkError != nil {
			_, _ = fmt.Fprintf(w, "[Network error]: %v\n", er.NetworkError)
		}
	}
}

func formatLocations(locs []Location) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",")
}

func formatPath(path []any) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		parts[i] = fmt.Sprint(seg)
	}
	return strings.Join(parts, ",")
}
