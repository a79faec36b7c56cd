package graphql

import (
	"context"
	"errors"
)

// ErrNoTerminatingLink is returned when an operation falls off the end of a
// chain without reaching a link that produces a response.
var ErrNoTerminatingLink = errors.New("graphql: link chain has no terminating link")

// NextLink hands an operation to the rest of the chain.
type NextLink func(ctx context.Context, op *Operation) (*Response, error)

// Link is one stage of the request pipeline. A non-terminating link calls
// forward and may observe or alter what comes back; a terminating link
// ignores forward and produces the response itself.
type Link interface {
	Request(ctx context.Context, op *Operation, forward NextLink) (*Response, error)
}

// LinkFunc adapts a function to the Link interface.
type LinkFunc func(ctx context.Context, op *Operation, forward NextLink) (*Response, error)

// Request calls f.
func (f LinkFunc) Request(ctx context.Context, op *Operation, forward NextLink) (*Response, error) {
	return f(ctx, op, forward)
}

// From composes links into a single Link. Operations enter links[0] first;
// the last link receives the forward function the composed link was given.
func From(links ...Link) Link {
	chain := make([]Link, len(links))
	copy(chain, links)

	return LinkFunc(func(ctx context.Context, op *Operation, forward NextLink) (*Response, error) {
		var step func(i int) NextLink
		step = func(i int) NextLink {
			if i == len(chain) {
				return forward
			}
			return func(ctx context.Context, op *Operation) (*Response, error) {
				return chain[i].Request(ctx, op, step(i+1))
			}
		}
		return step(0)(ctx, op)
	})
}

// Execute runs op through link.
func Execute(ctx context.Context, link Link, op *Operation) (*Response, error) {
	return link.Request(ctx, op, endOfChain)
}

func endOfChain(context.Context, *Operation) (*Response, error) {
	return nil, ErrNoTerminatingLink
}
