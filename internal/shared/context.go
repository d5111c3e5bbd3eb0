package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting admin identity in context. The auth
// layer in front of this service resolves the identity; here it is only
// carried through for audit trails.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting admin identity, "" when absent.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}
