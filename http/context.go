package http

import (
	"context"
)

type storeSelectorKey struct{}

// WithRequestStore overrides the store selector of the Transport for
// requests carrying the returned context. The selector accepts the same
// values as WithStore.
func WithRequestStore(ctx context.Context, selector any) context.Context {
	return context.WithValue(ctx, storeSelectorKey{}, selector)
}

// StoreFromContext retrieves a store selector set with WithRequestStore.
func StoreFromContext(ctx context.Context) (any, bool) {
	selector := ctx.Value(storeSelectorKey{})
	return selector, selector != nil
}
