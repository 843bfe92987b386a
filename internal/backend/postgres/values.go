package postgres

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

// normalizeRow converts driver values into their JSON shapes: uuids as
// canonical text, dates as YYYY-MM-DD, numerics as numbers.
func normalizeRow(m map[string]any) backend.Row {
	out := make(backend.Row, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 && val.Location() == time.UTC {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339Nano)
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

// pgValue converts decoded JSON values into types pgx can encode.
func pgValue(v any) any {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}
