package userctx

import "context"

// Context key type
type contextKey string

const usernameKey contextKey = "username"

// SetUsername adds the authenticated username to the request context
func SetUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// GetUsername retrieves the authenticated username from the request context.
// Every mutation handler runs behind the auth middleware, so an empty value
// only occurs on unauthenticated routes.
func GetUsername(ctx context.Context) string {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok {
		return ""
	}
	return username
}
