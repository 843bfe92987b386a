package memory

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

var errMissingProvider = errors.New("memory: provider is required")

// GetUser resolves an access token issued by IssueSession or seeded in Config.
func (s *Store) GetUser(ctx context.Context, accessToken string) (backend.User, error) {
	if err := ctx.Err(); err != nil {
		return backend.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.sessions[accessToken]
	if !ok || accessToken == "" {
		return backend.User{}, &backend.Error{Status: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	return user, nil
}

// SignInWithOTP records the magic-link request instead of sending mail.
func (s *Store) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &backend.Error{Status: http.StatusBadRequest, Code: "validation_failed", Message: "Unable to validate email address: invalid format"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.magicLinks = append(s.magicLinks, MagicLink{Email: email, RedirectTo: redirectTo})
	return nil
}

// AuthorizeURL builds the provider redirect the browser follows.
func (s *Store) AuthorizeURL(provider, redirectTo string) (string, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", errMissingProvider
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return s.authBase + "/authorize?" + q.Encode(), nil
}

// SignOut revokes the access token.
func (s *Store) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[accessToken]; !ok {
		return &backend.Error{Status: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	delete(s.sessions, accessToken)
	return nil
}

// IssueSession creates an access token for user. A blank user ID is generated.
func (s *Store) IssueSession(user backend.User) (string, backend.User) {
	if user.ID == "" {
		user.ID = s.newID()
	}
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = user
	return token, user
}

// MagicLinks returns the recorded sign-in requests.
func (s *Store) MagicLinks() []MagicLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MagicLink(nil), s.magicLinks...)
}
