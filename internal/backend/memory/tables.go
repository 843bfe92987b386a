package memory

import (
	"strings"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

// uniqueKey is a named set of columns whose values must be unique together.
type uniqueKey struct {
	name    string
	columns []string
}

type table struct {
	rows   []backend.Row
	unique []uniqueKey
}

func newTables() map[string]*table {
	return map[string]*table{
		backend.TableEvents: {unique: []uniqueKey{{"events_pkey", []string{"id"}}}},
		backend.TableFights: {unique: []uniqueKey{{"fights_pkey", []string{"id"}}}},
		backend.TableLeagues: {unique: []uniqueKey{
			{"leagues_pkey", []string{"id"}},
			{"leagues_invite_code_key", []string{"invite_code"}},
		}},
		backend.TableMembers: {unique: []uniqueKey{
			{"league_members_pkey", []string{"league_id", "user_id"}},
		}},
		backend.TablePicks: {unique: []uniqueKey{
			{"picks_pkey", []string{"id"}},
			{"picks_user_id_league_id_fight_id_key", []string{"user_id", "league_id", "fight_id"}},
		}},
	}
}

// filter returns copies of the rows matching every filter.
func (t *table) filter(filters []backend.Filter) []backend.Row {
	out := make([]backend.Row, 0, len(t.rows))
	for _, row := range t.rows {
		if matches(row, filters) {
			out = append(out, row.Clone())
		}
	}
	return out
}

// find returns the index of the row sharing the given columns with candidate,
// or -1. Columns missing from candidate never match.
func (t *table) find(columns []string, candidate backend.Row) int {
	if len(columns) == 0 {
		return -1
	}
	for _, c := range columns {
		if _, ok := candidate[c]; !ok {
			return -1
		}
	}
	for i, row := range t.rows {
		if sameValues(row, candidate, columns) {
			return i
		}
	}
	return -1
}

func (t *table) insert(row backend.Row) (backend.Row, error) {
	if err := t.checkUnique(row, -1); err != nil {
		return nil, err
	}
	stored := row.Clone()
	t.rows = append(t.rows, stored)
	return stored.Clone(), nil
}

// update merges patch into the row at idx. Columns absent from patch keep
// their stored values.
func (t *table) update(idx int, patch backend.Row) (backend.Row, error) {
	merged := t.rows[idx].Clone()
	for k, v := range patch {
		merged[k] = v
	}
	if err := t.checkUnique(merged, idx); err != nil {
		return nil, err
	}
	t.rows[idx] = merged
	return merged.Clone(), nil
}

func (t *table) checkUnique(row backend.Row, skip int) error {
	for _, key := range t.unique {
		for i, existing := range t.rows {
			if i == skip {
				continue
			}
			if sameValues(existing, row, key.columns) {
				return backend.UniqueViolation(key.name)
			}
		}
	}
	return nil
}

// foldedColumns compare case-insensitively, matching how they are looked up.
var foldedColumns = map[string]bool{"invite_code": true}

func sameValues(a, b backend.Row, columns []string) bool {
	for _, c := range columns {
		va, vb := a.String(c), b.String(c)
		if va == "" || vb == "" {
			return false
		}
		if foldedColumns[c] {
			if !strings.EqualFold(va, vb) {
				return false
			}
		} else if va != vb {
			return false
		}
	}
	return true
}

func matches(row backend.Row, filters []backend.Filter) bool {
	for _, f := range filters {
		got := row.String(f.Column)
		switch f.Op {
		case backend.OpEq:
			if got != stringify(f.Value) {
				return false
			}
		case backend.OpEqualFold:
			if !strings.EqualFold(got, stringify(f.Value)) {
				return false
			}
		case backend.OpIn:
			values, _ := f.Value.([]string)
			found := false
			for _, v := range values {
				if v == got {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func stringify(v any) string {
	return backend.Row{"v": v}.String("v")
}
