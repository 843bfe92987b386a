// Package domain holds the shapes shared by the events, leagues and picks models.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ValidID reports whether raw is a canonical textual UUID (8-4-4-4-12 hex
// digits, version 1 through 5, RFC 4122 variant). Braced, URN and compact
// forms are rejected even though uuid.Parse accepts them.
func ValidID(raw string) bool {
	if len(raw) != 36 || strings.Count(raw, "-") != 4 {
		return false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return false
	}
	if v := id.Version(); v < 1 || v > 5 {
		return false
	}
	return id.Variant() == uuid.RFC4122
}
