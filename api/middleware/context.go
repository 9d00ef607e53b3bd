package middleware

import "context"

type actorKey struct{}

// Actor is the authenticated console user attached by Auth.
type Actor struct {
	UserID string
	Role   string
	Email  string
}

// WithActor attaches actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the zero Actor on unauthenticated requests.
func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

func UserIDFromContext(ctx context.Context) string { return ActorFromContext(ctx).UserID }

func RoleFromContext(ctx context.Context) string { return ActorFromContext(ctx).Role }

func EmailFromContext(ctx context.Context) string { return ActorFromContext(ctx).Email }
