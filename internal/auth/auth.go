// Package auth carries the acting principal through a request context.
package auth

import "context"

// Principal identifies the signed-in user.
type Principal struct {
	UserID string
	// Pro is true for users on the paid plan; quota denials are waived.
	Pro bool
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx. ok is false when no
// principal is present or its UserID is empty.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}
