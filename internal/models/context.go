package models

import "context"

type actorContextKey struct{}

// WithActor attaches the acting user's id to a context so the collections
// layer can stamp audit trail entries without changing its interface.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFromContext retrieves the acting user's id, or "" if absent.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}
