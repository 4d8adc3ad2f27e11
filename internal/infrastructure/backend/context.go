package backend

import "context"

type bearerKey struct{}

// WithBearerToken attaches the token forwarded to the upstream on every call made with ctx
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerToken returns the token set by WithBearerToken
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}
