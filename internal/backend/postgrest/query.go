package postgrest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

// queryParams renders a Query in the REST filter syntax:
// col=eq.v, col=in.("a","b"), col=ilike.v, order=col.asc, limit=n.
func queryParams(q backend.Query) (url.Values, error) {
	params := url.Values{}
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	} else {
		params.Set("select", "*")
	}

	for _, f := range q.Filters {
		switch f.Op {
		case backend.OpEq:
			params.Add(f.Column, "eq."+fmt.Sprint(f.Value))
		case backend.OpEqualFold:
			params.Add(f.Column, "ilike."+escapeLike(fmt.Sprint(f.Value)))
		case backend.OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return nil, fmt.Errorf("postgrest: in filter on %s needs []string, got %T", f.Column, f.Value)
			}
			quoted := make([]string, len(values))
			for i, v := range values {
				quoted[i] = quoteListValue(v)
			}
			params.Add(f.Column, "in.("+strings.Join(quoted, ",")+")")
		default:
			return nil, fmt.Errorf("postgrest: unsupported filter %q", f.Op)
		}
	}

	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params, nil
}

// escapeLike makes pattern characters literal so ilike acts as a
// case-insensitive equality.
func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `\*`)
	return r.Replace(v)
}

func quoteListValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
