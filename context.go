package l402

import (
	"context"

	"github.com/vitwit/l402/types"
)

type contextKey struct{}

// WithInfo attaches the classification record to a request context.
func WithInfo(ctx context.Context, info *types.L402Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// InfoFromContext retrieves the classification record the middleware stored
// for this request. Handlers behind the middleware always find one.
func InfoFromContext(ctx context.Context) (*types.L402Info, bool) {
	info, ok := ctx.Value(contextKey{}).(*types.L402Info)
	return info, ok
}
