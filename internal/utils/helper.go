package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ParseUUID accepts an id with surrounding whitespace, as it arrives from
// path parameters.
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
