package logging

import "context"

type contextKey string

const (
	repoKey contextKey = "repo"
	dayKey  contextKey = "day"
)

// WithRepo adds the tracked repository slug to the context.
func WithRepo(ctx context.Context, repo string) context.Context {
	return context.WithValue(ctx, repoKey, repo)
}

// WithDay adds the report day (YYYY-MM-DD) to the context.
func WithDay(ctx context.Context, day string) context.Context {
	return context.WithValue(ctx, dayKey, day)
}

// GetRepo retrieves the repository slug from the context.
// Returns empty string if not present.
func GetRepo(ctx context.Context) string {
	if repo, ok := ctx.Value(repoKey).(string); ok {
		return repo
	}
	return ""
}

// GetDay retrieves the report day from the context.
// Returns empty string if not present.
func GetDay(ctx context.Context) string {
	if day, ok := ctx.Value(dayKey).(string); ok {
		return day
	}
	return ""
}
