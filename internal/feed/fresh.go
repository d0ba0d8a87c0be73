package feed

import "context"

type freshKey struct{}

// WithFresh marks ctx so that a Source skips any response cache for the
// requests it carries and stores what the network returns instead.
func WithFresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

// IsFresh reports whether ctx was marked by WithFresh.
func IsFresh(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshKey{}).(bool)
	return fresh
}
