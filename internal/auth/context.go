package auth

import (
	"context"

	"github.com/Feuerhamster/memoria/internal/access"
	"github.com/Feuerhamster/memoria/internal/store"
)

type contextKey string

const contextKeyUser contextKey = "user"

func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(contextKeyUser).(*store.User)
	return u, ok
}

// CallerFromContext derives the explicit principal handlers pass to the
// access checker. Requests without an authenticated user yield the anonymous
// caller.
func CallerFromContext(ctx context.Context) access.Caller {
	u, ok := UserFromContext(ctx)
	if !ok || u == nil {
		return access.Anonymous
	}
	return access.Caller{UserID: u.ID, IsAuthenticated: true}
}
