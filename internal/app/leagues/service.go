package leagues

import (
	"context"
	"errors"
	"strings"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	domainleagues "github.com/preston-bernstein/fightpicks/internal/domain/leagues"
)

// User-facing messages.
const (
	MsgSignInFirst   = "Please sign in first."
	MsgNameRequired  = "Please enter a league name."
	MsgInvalidCode   = "Please enter a valid invite code."
	MsgNoLeague      = "No league found with that code."
	MsgAlreadyMember = "You are already in this league."
	MsgCreateFailed  = "Failed to create league"
)

const maxNameLen = 80

var leagueColumns = []string{"id", "name", "invite_code", "owner_id"}

// Service creates, joins and lists leagues as the user in the context.
type Service struct {
	data backend.DataService
}

// NewService constructs a Service.
func NewService(data backend.DataService) *Service {
	return &Service{data: data}
}

// Create inserts a league owned by userID and adds the owner membership.
func (s *Service) Create(ctx context.Context, userID, name string) (domainleagues.League, error) {
	if userID == "" {
		return domainleagues.League{}, apperr.Unauthenticated(MsgSignInFirst)
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return domainleagues.League{}, apperr.Invalid(MsgNameRequired)
	}

	var league domainleagues.League
	err := s.data.Insert(ctx, backend.TableLeagues, backend.Row{"name": name, "owner_id": userID}, &league)
	if err != nil {
		return domainleagues.League{}, createError(err)
	}
	if league.ID == "" {
		return domainleagues.League{}, apperr.Rejected(MsgCreateFailed, nil)
	}

	member := domainleagues.Member{LeagueID: league.ID, UserID: userID, Role: domainleagues.RoleOwner}
	if err := s.data.Insert(ctx, backend.TableMembers, member, nil); err != nil {
		return domainleagues.League{}, backend.Classify(err)
	}
	return league, nil
}

// Join looks the invite code up case-insensitively and adds userID as a member.
func (s *Service) Join(ctx context.Context, userID, rawCode string) (domainleagues.League, error) {
	if userID == "" {
		return domainleagues.League{}, apperr.Unauthenticated(MsgSignInFirst)
	}
	code, ok := domainleagues.NormalizeInviteCode(rawCode)
	if !ok {
		return domainleagues.League{}, apperr.Invalid(MsgInvalidCode)
	}

	var league domainleagues.League
	err := s.data.Select(ctx, backend.Query{
		Table:   backend.TableLeagues,
		Columns: leagueColumns,
		Filters: []backend.Filter{backend.EqualFold("invite_code", code)},
		Single:  true,
	}, &league)
	if err != nil {
		if errors.Is(err, backend.ErrNoRows) || backend.IsRejection(err) {
			return domainleagues.League{}, apperr.NotFound(MsgNoLeague, err)
		}
		return domainleagues.League{}, backend.Classify(err)
	}

	member := domainleagues.Member{LeagueID: league.ID, UserID: userID, Role: domainleagues.RoleMember}
	if err := s.data.Insert(ctx, backend.TableMembers, member, nil); err != nil {
		if backend.IsUniqueViolation(err) {
			return domainleagues.League{}, apperr.Rejected(MsgAlreadyMember, err)
		}
		return domainleagues.League{}, backend.Classify(err)
	}
	return league, nil
}

// ListForUser returns the leagues userID belongs to, ordered by name.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domainleagues.League, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated(MsgSignInFirst)
	}

	var members []domainleagues.Member
	err := s.data.Select(ctx, backend.Query{
		Table:   backend.TableMembers,
		Columns: []string{"league_id"},
		Filters: []backend.Filter{backend.Eq("user_id", userID)},
	}, &members)
	if err != nil {
		return nil, backend.Classify(err)
	}

	out := []domainleagues.League{}
	if len(members) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.LeagueID)
	}

	err = s.data.Select(ctx, backend.Query{
		Table:   backend.TableLeagues,
		Columns: leagueColumns,
		Filters: []backend.Filter{backend.In("id", ids)},
		Order:   []backend.Order{{Column: "name"}},
	}, &out)
	if err != nil {
		return nil, backend.Classify(err)
	}
	return out, nil
}

func createError(err error) error {
	if bErr, ok := backend.AsError(err); ok && bErr.Message == "" && backend.IsRejection(err) {
		return apperr.Rejected(MsgCreateFailed, err)
	}
	return backend.Classify(err)
}
