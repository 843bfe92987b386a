package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is a generic table row keyed by column name.
type Row map[string]any

// ToRow converts a tagged struct or map into a Row.
func ToRow(v any) (Row, error) {
	if row, ok := v.(Row); ok {
		return row.Clone(), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var row Row
	if err := decodeJSON(raw, &row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

// Decode copies src into dest through its JSON representation.
// A nil dest discards the value.
func Decode(src any, dest any) error {
	if dest == nil {
		return nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return DecodeJSON(raw, dest)
}

// DecodeJSON unmarshals raw into dest. A nil dest discards the value.
func DecodeJSON(raw []byte, dest any) error {
	if dest == nil {
		return nil
	}
	if err := decodeJSON(raw, dest); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func decodeJSON(raw []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dest)
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project keeps only the named columns. No columns keeps everything.
func (r Row) Project(columns []string) Row {
	if len(columns) == 0 {
		return r.Clone()
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// String renders a column value for comparisons. Missing and null are "".
func (r Row) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
