// Package memory is an in-process backend with the same tables, unique keys
// and enum lookup as the hosted service. It backs local runs and tests.
package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

const (
	driverName       = "memory"
	inviteCodeLength = 8
	inviteAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeRLSViolation = "42501"
	codeUnknownEnum  = "22023"
)

// Config seeds the store.
type Config struct {
	// Enums maps enum names to their ordered labels.
	Enums map[string][]string
	// Sessions maps access tokens to users.
	Sessions map[string]backend.User
	// Fixture loads the demo card into events and fights.
	Fixture bool
	// AuthBaseURL prefixes authorize URLs handed to the browser.
	AuthBaseURL string
}

// Store is a thread-safe set of tables.
type Store struct {
	mu         sync.RWMutex
	tables     map[string]*table
	enums      map[string][]string
	sessions   map[string]backend.User
	magicLinks []MagicLink
	authBase   string
	newID      func() string
	newCode    func() string
}

// MagicLink records a passwordless sign-in request.
type MagicLink struct {
	Email      string
	RedirectTo string
}

// New creates a Store with empty tables.
func New(cfg Config) *Store {
	s := &Store{
		tables:   newTables(),
		enums:    make(map[string][]string),
		sessions: make(map[string]backend.User),
		authBase: strings.TrimSuffix(cfg.AuthBaseURL, "/"),
		newID:    func() string { return uuid.NewString() },
		newCode:  randomInviteCode,
	}
	if s.authBase == "" {
		s.authBase = "http://localhost:4000/auth/v1"
	}
	for name, labels := range cfg.Enums {
		s.enums[name] = append([]string(nil), labels...)
	}
	for token, user := range cfg.Sessions {
		s.sessions[token] = user
	}
	if cfg.Fixture {
		s.loadFixture()
	}
	return s
}

func (s *Store) Name() string { return driverName }

// Select returns matching rows, projected, ordered and limited.
func (s *Store) Select(ctx context.Context, q backend.Query, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	t, err := s.table(q.Table)
	if err != nil {
		s.mu.RUnlock()
		return err
	}
	rows := t.filter(q.Filters)
	s.mu.RUnlock()

	sortRows(rows, q.Order)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	for i := range rows {
		rows[i] = rows[i].Project(q.Columns)
	}

	if q.Single {
		if len(rows) == 0 {
			return backend.ErrNoRows
		}
		if len(rows) > 1 {
			return &backend.Error{Status: 406, Code: backend.CodeNoRows, Message: "JSON object requested, multiple rows returned"}
		}
		return backend.Decode(rows[0], dest)
	}
	return backend.Decode(rows, dest)
}

// Insert adds a row, filling generated columns, and returns it.
func (s *Store) Insert(ctx context.Context, table string, row any, dest any) error {
	return s.write(ctx, table, row, nil, dest)
}

// Upsert inserts the row or merges it into the row matching onConflict.
func (s *Store) Upsert(ctx context.Context, table string, row any, onConflict []string, dest any) error {
	if len(onConflict) == 0 {
		onConflict = []string{"id"}
	}
	return s.write(ctx, table, row, onConflict, dest)
}

func (s *Store) write(ctx context.Context, tableName string, raw any, onConflict []string, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row, err := backend.ToRow(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	t, err := s.table(tableName)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.authorizeWrite(ctx, tableName, row); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.checkEnums(tableName, row); err != nil {
		s.mu.Unlock()
		return err
	}

	var saved backend.Row
	if idx := t.find(onConflict, row); idx >= 0 {
		saved, err = t.update(idx, row)
	} else {
		s.fillDefaults(tableName, row)
		saved, err = t.insert(row)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return backend.Decode(saved, dest)
}

// RPC serves enum_values.
func (s *Store) RPC(ctx context.Context, fn string, args map[string]any, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fn != backend.RPCEnumValues {
		return &backend.Error{Status: 404, Code: "PGRST202", Message: fmt.Sprintf("%v: %s", backend.ErrUnknownFunction, fn)}
	}
	name, _ := args["enum_name"].(string)

	s.mu.RLock()
	labels, ok := s.enums[name]
	out := append([]string(nil), labels...)
	s.mu.RUnlock()

	if !ok {
		return &backend.Error{Status: 400, Code: codeUnknownEnum, Message: fmt.Sprintf("type %q does not exist", name)}
	}
	return backend.Decode(out, dest)
}

// SetEnum replaces the labels of an enum.
func (s *Store) SetEnum(name string, labels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enums[name] = append([]string(nil), labels...)
}

// Rows returns a copy of every row in a table, for inspection.
func (s *Store) Rows(tableName string) []backend.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(tableName)
	if err != nil {
		return nil
	}
	return t.filter(nil)
}

// caller holds s.mu
func (s *Store) table(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, &backend.Error{Status: 404, Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", name)}
	}
	return t, nil
}

// authorizeWrite mirrors the hosted row-level policies: a signed-in user may
// only write rows they own, and only picks in leagues they belong to.
// Calls without an access token run with service privileges.
// caller holds s.mu
func (s *Store) authorizeWrite(ctx context.Context, tableName string, row backend.Row) error {
	token := backend.AccessToken(ctx)
	if token == "" {
		return nil
	}
	user, ok := s.sessions[token]
	if !ok {
		return &backend.Error{Status: 401, Message: "invalid JWT"}
	}

	denied := &backend.Error{Status: 403, Code: codeRLSViolation, Message: fmt.Sprintf("new row violates row-level security policy for table %q", tableName)}
	switch tableName {
	case backend.TableLeagues:
		if row.String("owner_id") != user.ID {
			return denied
		}
	case backend.TableMembers:
		if row.String("user_id") != user.ID {
			return denied
		}
	case backend.TablePicks:
		if row.String("user_id") != user.ID {
			return denied
		}
		members := s.tables[backend.TableMembers].filter([]backend.Filter{
			backend.Eq("league_id", row.String("league_id")),
			backend.Eq("user_id", user.ID),
		})
		if len(members) == 0 {
			return denied
		}
	case backend.TableEvents, backend.TableFights:
		return denied
	}
	return nil
}

// caller holds s.mu
func (s *Store) checkEnums(tableName string, row backend.Row) error {
	if tableName != backend.TablePicks {
		return nil
	}
	method, ok := row["method"]
	if !ok {
		return nil
	}
	labels := s.enums["method"]
	for _, l := range labels {
		if l == fmt.Sprint(method) {
			return nil
		}
	}
	return &backend.Error{Status: 400, Code: backend.CodeInvalidEnum, Message: fmt.Sprintf("invalid input value for enum method: %q", fmt.Sprint(method))}
}

// caller holds s.mu
func (s *Store) fillDefaults(tableName string, row backend.Row) {
	if _, ok := row["id"]; !ok && tableName != backend.TableMembers {
		row["id"] = s.newID()
	}
	switch tableName {
	case backend.TableLeagues:
		if row.String("invite_code") == "" {
			row["invite_code"] = s.newCode()
		}
	case backend.TableMembers:
		if row.String("role") == "" {
			row["role"] = "member"
		}
	case backend.TablePicks:
		if _, ok := row["round"]; !ok {
			row["round"] = nil
		}
	}
}

func randomInviteCode() string {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:inviteCodeLength]
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(buf)
}

func sortRows(rows []backend.Row, order []backend.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			c := compareValues(rows[i].String(o.Column), rows[j].String(o.Column))
			if c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
