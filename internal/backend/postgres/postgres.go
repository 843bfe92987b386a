// Package postgres reads and writes the backend tables directly with a pgx
// pool. Calls carrying an access token run inside a transaction that assumes
// the authenticated role with the caller's claims, so the same row-level
// policies apply as through the REST API.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

const (
	driverName      = "postgres"
	defaultMaxConns = 10
	defaultRole     = "authenticated"
)

var errAuthUnavailable = errors.New("postgres: no auth service configured")

// SubjectFunc resolves the user ID behind an access token.
type SubjectFunc func(ctx context.Context, accessToken string) (string, error)

// Config controls the pool and how user claims are applied.
type Config struct {
	DatabaseURL string
	MaxConns    int32
	// Role is assumed for calls that carry an access token.
	Role string
	// Subject resolves token owners; required for user-scoped calls.
	Subject SubjectFunc
	// Auth serves sign-in flows, which a bare database cannot.
	Auth backend.AuthService
}

// Store implements backend.Client on a Postgres pool.
type Store struct {
	pool    *pgxpool.Pool
	sb      sq.StatementBuilderType
	role    string
	subject SubjectFunc
	auth    backend.AuthService
}

// New connects a pool and verifies it with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	poolCfg.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return newStore(pool, cfg)
}

func newStore(pool *pgxpool.Pool, cfg Config) (*Store, error) {
	role := cfg.Role
	if role == "" {
		role = defaultRole
	}
	if !validIdentifier(role) {
		return nil, fmt.Errorf("postgres: invalid role %q", role)
	}
	return &Store{
		pool:    pool,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		role:    role,
		subject: cfg.Subject,
		auth:    cfg.Auth,
	}, nil
}

func (s *Store) Name() string { return driverName }

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Select(ctx context.Context, q backend.Query, dest any) error {
	query, err := buildSelect(s.sb, q)
	if err != nil {
		return err
	}
	rows, err := s.collect(ctx, query)
	if err != nil {
		return err
	}
	if q.Single {
		switch len(rows) {
		case 0:
			return backend.ErrNoRows
		case 1:
			return backend.Decode(rows[0], dest)
		default:
			return &backend.Error{Status: 406, Code: backend.CodeNoRows, Message: "JSON object requested, multiple rows returned"}
		}
	}
	return backend.Decode(rows, dest)
}

func (s *Store) Insert(ctx context.Context, table string, row any, dest any) error {
	return s.write(ctx, table, row, nil, dest)
}

func (s *Store) Upsert(ctx context.Context, table string, row any, onConflict []string, dest any) error {
	if len(onConflict) == 0 {
		onConflict = []string{"id"}
	}
	return s.write(ctx, table, row, onConflict, dest)
}

func (s *Store) write(ctx context.Context, table string, raw any, onConflict []string, dest any) error {
	row, err := backend.ToRow(raw)
	if err != nil {
		return err
	}
	query, err := buildWrite(s.sb, table, row, onConflict)
	if err != nil {
		return err
	}
	rows, err := s.collect(ctx, query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return backend.ErrNoRows
	}
	return backend.Decode(rows[0], dest)
}

// RPC serves enum_values from the catalog.
func (s *Store) RPC(ctx context.Context, fn string, args map[string]any, dest any) error {
	if fn != backend.RPCEnumValues {
		return fmt.Errorf("%w: %s", backend.ErrUnknownFunction, fn)
	}
	name, _ := args["enum_name"].(string)
	rows, err := s.collect(ctx, enumValuesQuery(s.sb, name))
	if err != nil {
		return err
	}
	labels := make([]string, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.String("enumlabel"))
	}
	return backend.Decode(labels, dest)
}

func (s *Store) GetUser(ctx context.Context, accessToken string) (backend.User, error) {
	if s.auth == nil {
		return backend.User{}, errAuthUnavailable
	}
	return s.auth.GetUser(ctx, accessToken)
}

func (s *Store) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	if s.auth == nil {
		return errAuthUnavailable
	}
	return s.auth.SignInWithOTP(ctx, email, redirectTo)
}

func (s *Store) AuthorizeURL(provider, redirectTo string) (string, error) {
	if s.auth == nil {
		return "", errAuthUnavailable
	}
	return s.auth.AuthorizeURL(provider, redirectTo)
}

func (s *Store) SignOut(ctx context.Context, accessToken string) error {
	if s.auth == nil {
		return errAuthUnavailable
	}
	return s.auth.SignOut(ctx, accessToken)
}

// collect runs query and returns normalized rows. User-scoped calls run in a
// transaction with the caller's claims applied locally.
func (s *Store) collect(ctx context.Context, query sq.Sqlizer) ([]backend.Row, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build query: %w", err)
	}

	token := backend.AccessToken(ctx)
	if token == "" {
		rows, err := s.pool.Query(ctx, sql, args...)
		if err != nil {
			return nil, translateError(err)
		}
		return collectRows(rows)
	}

	claims, err := s.claims(ctx, token)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT set_config('request.jwt.claims', $1, true)", claims); err != nil {
		return nil, translateError(err)
	}
	if _, err := tx.Exec(ctx, "SET LOCAL ROLE "+pgx.Identifier{s.role}.Sanitize()); err != nil {
		return nil, translateError(err)
	}
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateError(err)
	}
	out, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (s *Store) claims(ctx context.Context, token string) (string, error) {
	if s.subject == nil {
		return "", &backend.Error{Status: 401, Message: "user-scoped queries are not configured"}
	}
	sub, err := s.subject(ctx, token)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(map[string]string{"sub": sub, "role": s.role})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func collectRows(rows pgx.Rows) ([]backend.Row, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]backend.Row, len(maps))
	for i, m := range maps {
		out[i] = normalizeRow(m)
	}
	return out, nil
}
