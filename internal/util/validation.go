package util

import (
	"regexp"
)

var screenIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{2,63}$`)

// IsValidScreenID accepts generated SCR-... ids as well as ids supplied by
// provisioned devices, as long as they are short and URL-safe.
func IsValidScreenID(s string) bool {
	if s == "" {
		return false
	}
	return screenIDRegex.MatchString(s)
}
