// Package auth establishes caller identity. The identity is the subject of a
// bearer JWT; authorization compares it against the resource owner.
package auth

import (
	"context"

	"YieldOptimizer/internal/model"
)

// Authorizer decides whether caller may act on owner's funds.
type Authorizer interface {
	Authorize(ctx context.Context, caller, owner string) error
}

// OwnerAuthorizer permits a caller to act only on its own funds.
type OwnerAuthorizer struct{}

func (OwnerAuthorizer) Authorize(_ context.Context, caller, owner string) error {
	if caller == "" || caller != owner {
		return model.ErrUnauthorized
	}
	return nil
}

type callerKey struct{}

// WithCaller returns a context carrying the authenticated caller.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller stored by the middleware, or "".
func CallerFrom(ctx context.Context) string {
	v, _ := ctx.Value(callerKey{}).(string)
	return v
}
