package payments

import "strings"

// IsPaid is the canonical truthiness predicate for the stored paid flag.
// The document accumulated many spellings over time; every read path (list,
// detail, analytics) must go through this one function and never reinterpret
// the raw cell itself.
func IsPaid(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}
