package scheduler

import "context"

type runIDKey struct{}

// WithRunID tags ctx with a run id. The scheduler does this for every run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the id of the scheduled run ctx belongs to, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
