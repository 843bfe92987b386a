// Package backend describes the hosted data and auth service the app talks to.
// Drivers live in subpackages; callers only see DataService and AuthService.
package backend

import "context"

// Table and RPC names exposed by the backend schema.
const (
	TableEvents   = "events"
	TableFights   = "fights"
	TableLeagues  = "leagues"
	TableMembers  = "league_members"
	TablePicks    = "picks"
	RPCEnumValues = "enum_values"
)

// FilterOp is a row predicate supported by every driver.
type FilterOp string

const (
	OpEq        FilterOp = "eq"
	OpIn        FilterOp = "in"
	OpEqualFold FilterOp = "ilike"
)

// Filter restricts a query to rows whose Column matches Value.
// For OpIn, Value is a []string.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// EqualFold matches case-insensitively without wildcards.
func EqualFold(column, value string) Filter {
	return Filter{Column: column, Op: OpEqualFold, Value: value}
}

// Order sorts results by Column.
type Order struct {
	Column     string
	Descending bool
}

// Query selects rows from a table. Single expects exactly one row and
// decodes it into a struct instead of a slice; no match yields ErrNoRows.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
	Single  bool
}

// DataService reads and writes rows as the user carried in the context.
// dest follows encoding/json semantics and may be nil when the caller does
// not need the returned rows.
type DataService interface {
	Select(ctx context.Context, q Query, dest any) error
	Insert(ctx context.Context, table string, row any, dest any) error
	Upsert(ctx context.Context, table string, row any, onConflict []string, dest any) error
	RPC(ctx context.Context, fn string, args map[string]any, dest any) error
}

// User is the identity the auth service reports for an access token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// AuthService forwards authentication flows to the hosted identity provider.
type AuthService interface {
	GetUser(ctx context.Context, accessToken string) (User, error)
	SignInWithOTP(ctx context.Context, email, redirectTo string) error
	AuthorizeURL(provider, redirectTo string) (string, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Client is a complete backend driver.
type Client interface {
	DataService
	AuthService
	Name() string
}
