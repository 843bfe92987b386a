package pages

import (
	"fmt"

	"github.com/preston-bernstein/fightpicks/internal/autosave"
	"github.com/preston-bernstein/fightpicks/internal/domain"
	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/leagues"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

const (
	labelSaving = "Saving…"
	labelSaved  = "Saved"
	summaryHead = "My Picks"
)

// View is the full render state of a page.
type View struct {
	PageID       string           `json:"pageId"`
	EventID      string           `json:"eventId"`
	SignedIn     bool             `json:"signedIn"`
	Leagues      []leagues.League `json:"leagues"`
	LeagueID     string           `json:"leagueId"`
	League       *leagues.League  `json:"league,omitempty"`
	CanEdit      bool             `json:"canEdit"`
	Methods      []picks.Method   `json:"methods"`
	Fights       []FightRow       `json:"fights"`
	SummaryTitle string           `json:"summaryTitle"`
	Summary      []SummaryLine    `json:"summary"`
	Error        string           `json:"error,omitempty"`
}

// FightRow is one matchup with its local pick and save status.
type FightRow struct {
	Fight     events.Fight `json:"fight"`
	Title     string       `json:"title"`
	Rounds    []int        `json:"rounds"`
	Pick      *picks.Pick  `json:"pick,omitempty"`
	State     string       `json:"state"`
	Saving    bool         `json:"saving"`
	Saved     bool         `json:"saved"`
	JustSaved bool         `json:"justSaved"`
	Status    string       `json:"status"`
}

// SummaryLine is one entry of the "My Picks" list.
type SummaryLine struct {
	FightID   string `json:"fightId"`
	Text      string `json:"text"`
	JustSaved bool   `json:"justSaved"`
}

// View renders the current state of the page.
func (p *Page) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// caller holds p.mu
func (p *Page) viewLocked() View {
	now := p.cfg.Clock.Now()
	snap := p.ctrl.Snapshot()

	v := View{
		PageID:       p.id,
		EventID:      p.eventID,
		SignedIn:     p.user.ID != "",
		Leagues:      append([]leagues.League{}, p.leagues...),
		LeagueID:     p.leagueID,
		CanEdit:      domain.ValidID(p.leagueID),
		Methods:      append([]picks.Method{}, p.methods...),
		Fights:       make([]FightRow, 0, len(p.fights)),
		SummaryTitle: summaryHead,
		Summary:      []SummaryLine{},
		Error:        p.errMsg,
	}
	for i := range p.leagues {
		if p.leagues[i].ID == p.leagueID {
			l := p.leagues[i]
			v.League = &l
			v.SummaryTitle = summaryHead + " — " + l.Name
			break
		}
	}

	// p.fights is in bout order, so the summary is too.
	for _, f := range p.fights {
		st := snap[f.ID]
		row := FightRow{
			Fight:  f,
			Title:  f.Title(),
			Rounds: roundOptions(f),
			State:  string(st.State),
			Saving: st.State == autosave.StateSaving,
			Saved:  !st.SavedAt.IsZero(),
		}
		if row.State == "" {
			row.State = string(autosave.StateIdle)
		}
		row.JustSaved = row.Saved && now.Sub(st.SavedAt) < p.cfg.SavedFeedback
		switch {
		case row.Saving:
			row.Status = labelSaving
		case row.Saved:
			row.Status = labelSaved
		}
		if st.HasPick {
			pick := st.Pick
			row.Pick = &pick
			v.Summary = append(v.Summary, SummaryLine{
				FightID:   f.ID,
				Text:      SummaryText(f, pick, p.cfg.Decision),
				JustSaved: row.JustSaved,
			})
		}
		v.Fights = append(v.Fights, row)
	}
	return v
}

// SummaryText renders a pick as "Red vs Blue — Winner via KO, R2". The round
// is omitted for decisions and when no round was picked.
func SummaryText(f events.Fight, p picks.Pick, decision picks.Method) string {
	winner := f.RedName
	if p.Winner == picks.WinnerBlue {
		winner = f.BlueName
	}
	round := ""
	if p.Method != decision && p.Round != nil {
		round = fmt.Sprintf(", R%d", *p.Round)
	}
	return fmt.Sprintf("%s — %s via %s%s", f.Title(), winner, p.Method, round)
}

func roundOptions(f events.Fight) []int {
	out := make([]int, 0, f.Rounds())
	for r := 1; r <= f.Rounds(); r++ {
		out = append(out, r)
	}
	return out
}
