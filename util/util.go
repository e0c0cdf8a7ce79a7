// Package util contains misc internal utilities.
package util

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// AllElementsNumbers is true if s is non-empty and every rune is a digit or
// a decimal point
func AllElementsNumbers(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

// ParseDuration is time.ParseDuration, except a bare number is taken to be
// in unit.  e.g. ParseDuration("500", "ms") is 500 milliseconds.
func ParseDuration(s, unit string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if AllElementsNumbers(s) {
		s += unit
	}
	return time.ParseDuration(s)
}

// ParseBoolDefault parses s with strconv.ParseBool, returning def for the
// empty string
func ParseBoolDefault(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}
