package picks

import (
	"context"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	domainpicks "github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

const (
	DefaultMethodEnum = "method"
	MsgInvalidMethod  = "Invalid method selected."
)

// Service saves and loads picks as the user in the context.
type Service struct {
	data       backend.DataService
	methodEnum string
	decision   domainpicks.Method
}

// NewService constructs a Service. methodEnum names the backend enum that
// lists the finish methods.
func NewService(data backend.DataService, methodEnum string, decision domainpicks.Method) *Service {
	if methodEnum == "" {
		methodEnum = DefaultMethodEnum
	}
	return &Service{data: data, methodEnum: methodEnum, decision: decision}
}

// SavePick upserts p on (user_id, league_id, fight_id) and returns the stored row.
func (s *Service) SavePick(ctx context.Context, p domainpicks.Pick) (domainpicks.Pick, error) {
	payload := p.Normalize(s.decision)
	payload.ID = ""

	var saved domainpicks.Pick
	if err := s.data.Upsert(ctx, backend.TablePicks, payload, domainpicks.ConflictKey, &saved); err != nil {
		if bErr, ok := backend.AsError(err); ok && bErr.Code == backend.CodeInvalidEnum {
			return domainpicks.Pick{}, apperr.Rejected(MsgInvalidMethod, err)
		}
		return domainpicks.Pick{}, backend.Classify(err)
	}
	return saved.Normalize(s.decision), nil
}

// ListForLeague returns the user's picks in one league, optionally limited to
// the given fights.
func (s *Service) ListForLeague(ctx context.Context, userID, leagueID string, fightIDs []string) ([]domainpicks.Pick, error) {
	filters := []backend.Filter{
		backend.Eq("user_id", userID),
		backend.Eq("league_id", leagueID),
	}
	if len(fightIDs) > 0 {
		filters = append(filters, backend.In("fight_id", fightIDs))
	}
	return s.list(ctx, filters)
}

// ListForEvent returns the user's picks for an event across all leagues.
func (s *Service) ListForEvent(ctx context.Context, userID, eventID string) ([]domainpicks.Pick, error) {
	return s.list(ctx, []backend.Filter{
		backend.Eq("event_id", eventID),
		backend.Eq("user_id", userID),
	})
}

func (s *Service) list(ctx context.Context, filters []backend.Filter) ([]domainpicks.Pick, error) {
	out := []domainpicks.Pick{}
	if err := s.data.Select(ctx, backend.Query{Table: backend.TablePicks, Filters: filters}, &out); err != nil {
		return nil, backend.Classify(err)
	}
	return out, nil
}

// Methods fetches the valid finish methods from the backend enum.
func (s *Service) Methods(ctx context.Context) (domainpicks.MethodSet, error) {
	var labels []string
	if err := s.data.RPC(ctx, backend.RPCEnumValues, map[string]any{"enum_name": s.methodEnum}, &labels); err != nil {
		return nil, backend.Classify(err)
	}
	return domainpicks.NewMethodSet(labels), nil
}

// GroupByLeague splits picks by league and then by fight.
func GroupByLeague(rows []domainpicks.Pick) map[string]map[string]domainpicks.Pick {
	out := make(map[string]map[string]domainpicks.Pick)
	for _, p := range rows {
		byFight, ok := out[p.LeagueID]
		if !ok {
			byFight = make(map[string]domainpicks.Pick)
			out[p.LeagueID] = byFight
		}
		byFight[p.FightID] = p
	}
	return out
}
