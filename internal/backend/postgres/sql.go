package postgres

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

func ident(name string) (string, error) {
	if !validIdentifier(name) {
		return "", fmt.Errorf("postgres: invalid identifier %q", name)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

func idents(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		quoted, err := ident(n)
		if err != nil {
			return nil, err
		}
		out[i] = quoted
	}
	return out, nil
}

func buildSelect(sb sq.StatementBuilderType, q backend.Query) (sq.SelectBuilder, error) {
	table, err := ident(q.Table)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	columns := []string{"*"}
	if len(q.Columns) > 0 {
		if columns, err = idents(q.Columns); err != nil {
			return sq.SelectBuilder{}, err
		}
	}

	query := sb.Select(columns...).From(table)
	for _, f := range q.Filters {
		col, err := ident(f.Column)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		switch f.Op {
		case backend.OpEq:
			query = query.Where(sq.Eq{col: pgValue(f.Value)})
		case backend.OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return sq.SelectBuilder{}, fmt.Errorf("postgres: in filter on %s needs []string, got %T", f.Column, f.Value)
			}
			query = query.Where(sq.Eq{col + "::text": values})
		case backend.OpEqualFold:
			query = query.Where(sq.Expr("lower("+col+"::text) = lower(?)", f.Value))
		default:
			return sq.SelectBuilder{}, fmt.Errorf("postgres: unsupported filter %q", f.Op)
		}
	}
	for _, o := range q.Order {
		col, err := ident(o.Column)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		if o.Descending {
			col += " DESC"
		} else {
			col += " ASC"
		}
		query = query.OrderBy(col)
	}
	if q.Limit > 0 {
		query = query.Limit(uint64(q.Limit))
	}
	return query, nil
}

// buildWrite renders INSERT ... RETURNING *, adding ON CONFLICT DO UPDATE for
// the non-key columns when onConflict is set.
func buildWrite(sb sq.StatementBuilderType, table string, row backend.Row, onConflict []string) (sq.InsertBuilder, error) {
	tbl, err := ident(table)
	if err != nil {
		return sq.InsertBuilder{}, err
	}
	if len(row) == 0 {
		return sq.InsertBuilder{}, fmt.Errorf("postgres: empty row for %s", table)
	}

	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)

	columns, err := idents(names)
	if err != nil {
		return sq.InsertBuilder{}, err
	}
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = pgValue(row[n])
	}
	query := sb.Insert(tbl).Columns(columns...).Values(values...)

	if len(onConflict) == 0 {
		return query.Suffix("RETURNING *"), nil
	}

	keys, err := idents(onConflict)
	if err != nil {
		return sq.InsertBuilder{}, err
	}
	isKey := make(map[string]bool, len(onConflict))
	for _, k := range onConflict {
		isKey[k] = true
	}
	sets := make([]string, 0, len(names))
	for i, n := range names {
		if !isKey[n] {
			sets = append(sets, columns[i]+" = EXCLUDED."+columns[i])
		}
	}
	if len(sets) == 0 {
		sets = append(sets, keys[0]+" = EXCLUDED."+keys[0])
	}
	suffix := fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s RETURNING *", strings.Join(keys, ", "), strings.Join(sets, ", "))
	return query.Suffix(suffix), nil
}

func enumValuesQuery(sb sq.StatementBuilderType, name string) sq.SelectBuilder {
	return sb.Select("e.enumlabel").
		From("pg_enum e").
		Join("pg_type t ON t.oid = e.enumtypid").
		Where(sq.Eq{"t.typname": name}).
		OrderBy("e.enumsortorder")
}
