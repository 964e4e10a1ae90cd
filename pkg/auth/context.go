package auth

import "context"

type callerKey struct{}

func withCaller(ctx context.Context, acc Account) context.Context {
	return context.WithValue(ctx, callerKey{}, acc)
}

// Caller returns the authenticated Account attached to ctx by Authenticator.User,
// and whether one was present.
func Caller(ctx context.Context) (Account, bool) {
	acc, ok := ctx.Value(callerKey{}).(Account)
	return acc, ok
}
