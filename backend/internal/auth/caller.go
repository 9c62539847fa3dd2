package auth

import "context"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID   uint64
	Username string
}

type callerKey struct{}

func WithCaller(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// CallerFrom reports false for anonymous requests.
func CallerFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(callerKey{}).(Identity)
	if !ok || id.UserID == 0 {
		return Identity{}, false
	}
	return id, true
}
