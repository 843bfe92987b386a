package backend

import "context"

type accessTokenKey struct{}

// WithAccessToken stores the signed-in user's token so data calls run with
// that user's row-level permissions.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token stored by WithAccessToken.
func AccessToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
