package picks

// Winner names the competitor picked to win.
type Winner string

const (
	WinnerRed  Winner = "red"
	WinnerBlue Winner = "blue"
)

// Valid reports whether w is one of the two corners.
func (w Winner) Valid() bool {
	return w == WinnerRed || w == WinnerBlue
}

// Method is an opaque finish label (KO, SUB, DEC, ...). The valid labels are
// fetched from the backend and never hardcoded.
type Method string

// Pick is a user's prediction for one fight inside one league.
type Pick struct {
	ID       string `json:"id,omitempty"`
	UserID   string `json:"user_id"`
	LeagueID string `json:"league_id"`
	EventID  string `json:"event_id"`
	FightID  string `json:"fight_id"`
	Winner   Winner `json:"winner"`
	Method   Method `json:"method"`
	Round    *int   `json:"round"`
}

// ConflictKey is the uniqueness key the backend upserts picks on.
var ConflictKey = []string{"user_id", "league_id", "fight_id"}

// Normalize clears the round when the method is the decision category.
func (p Pick) Normalize(decision Method) Pick {
	if p.Method == decision {
		p.Round = nil
	}
	return p
}

// RoundValue returns the picked round or 0 when absent.
func (p Pick) RoundValue() int {
	if p.Round == nil {
		return 0
	}
	return *p.Round
}

// Patch is a partial local edit of a pick. Nil fields are left untouched;
// ClearRound explicitly removes the round.
type Patch struct {
	Winner     *Winner `json:"winner,omitempty"`
	Method     *Method `json:"method,omitempty"`
	Round      *int    `json:"round,omitempty"`
	ClearRound bool    `json:"clear_round,omitempty"`
}

// Apply merges the patch into p. The result is not normalized.
func (pt Patch) Apply(p Pick) Pick {
	if pt.Winner != nil {
		p.Winner = *pt.Winner
	}
	if pt.Method != nil {
		p.Method = *pt.Method
	}
	if pt.ClearRound {
		p.Round = nil
	} else if pt.Round != nil {
		r := *pt.Round
		p.Round = &r
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (pt Patch) Empty() bool {
	return pt.Winner == nil && pt.Method == nil && pt.Round == nil && !pt.ClearRound
}
