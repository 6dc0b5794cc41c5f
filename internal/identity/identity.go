package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthorized is returned when no usable identity token is available.
var ErrUnauthorized = errors.New("unauthorized")

// TokenSource yields the bearer token of the signed-in user.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a TokenSource backed by a fixed token. An empty token means signed out.
type Static string

func (s Static) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}

type userKey struct{}

// WithUser stores the authenticated user id in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the user id stored by WithUser.
func UserFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
