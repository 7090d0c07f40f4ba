// Package utils holds small parsing helpers shared by config, middleware and
// services. Nothing here knows about documents or users.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// not a valid int. Surrounding spaces are not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PositiveID parses a database id such as an X-User-ID header. Surrounding
// spaces are ignored; anything that is not an int64 above zero is rejected.
func PositiveID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ClampPage normalises a limit/offset pair: limit <= 0 becomes def, limit
// above max becomes max, and a negative offset becomes 0.
func ClampPage(limit, offset, def, max int) (int, int) {
	switch {
	case limit <= 0:
		limit = def
	case limit > max:
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
