// Package auth resolves access tokens into users and broadcasts sign-in
// state changes to open page sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/domain"
	"github.com/preston-bernstein/fightpicks/internal/logging"
)

// MsgSignIn is shown whenever an action needs a signed-in user.
const MsgSignIn = "Please sign in."

// User is the signed-in identity attached to a request.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"-"`
}

// Claims are the access-token claims issued by the hosted auth service.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks access tokens locally when the signing secret is known and
// asks the auth service otherwise.
type Verifier struct {
	secret []byte
	users  backend.AuthService
	logger *slog.Logger
	now    func() time.Time
}

// NewVerifier builds a Verifier. users may be nil when secret is set.
func NewVerifier(secret string, users backend.AuthService, logger *slog.Logger) *Verifier {
	v := &Verifier{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

// Verify resolves token into a User or returns an unauthenticated error.
func (v *Verifier) Verify(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, apperr.Unauthenticated(MsgSignIn)
	}
	if v.secret != nil {
		return v.verifyLocal(token)
	}
	if v.users == nil {
		return User{}, errors.New("auth: no verifier configured")
	}

	u, err := v.users.GetUser(ctx, token)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return User{}, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: MsgSignIn, Err: err}
		}
		logging.Warn(logging.FromContext(ctx, v.logger), "auth lookup failed", "error", err)
		return User{}, apperr.Transient(err)
	}
	if !domain.ValidID(u.ID) {
		return User{}, apperr.Unauthenticated(MsgSignIn)
	}
	return User{ID: u.ID, Email: u.Email, AccessToken: token}, nil
}

func (v *Verifier) verifyLocal(token string) (User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return User{}, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: MsgSignIn, Err: err}
	}
	if !domain.ValidID(claims.Subject) {
		return User{}, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: MsgSignIn, Err: fmt.Errorf("auth: bad subject %q", claims.Subject)}
	}
	return User{ID: claims.Subject, Email: claims.Email, AccessToken: token}, nil
}

// Subject returns the user ID behind token.
func (v *Verifier) Subject(ctx context.Context, token string) (string, error) {
	u, err := v.Verify(ctx, token)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type userKey struct{}

// WithUser attaches the user and their access token to ctx.
func WithUser(ctx context.Context, u User) context.Context {
	ctx = context.WithValue(ctx, userKey{}, u)
	return backend.WithAccessToken(ctx, u.AccessToken)
}

// FromContext returns the user attached by WithUser.
func FromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok && u.ID != ""
}
