package normalize

import (
	"strings"
)

// KeySet is a set of normalized identity strings for one animal. Two records
// refer to the same animal when their key sets intersect.
type KeySet map[string]struct{}

func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		if k != "" {
			s[k] = struct{}{}
		}
	}
}

func (s KeySet) Merge(other KeySet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

func (s KeySet) Intersects(other KeySet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}

// BuildIdentityKeys derives the matching keys for a (series, registration
// number) pair. The same animal shows up as "RGN 007", "rgn|7" or "RGN7"
// depending on which table recorded it, so keys are case-insensitive and
// leading zeros in the number are insignificant.
func BuildIdentityKeys(series, registration string) KeySet {
	keys := KeySet{}

	ser := strings.ToUpper(strings.TrimSpace(series))
	num := strings.TrimSpace(registration)
	if ser == "" && num == "" {
		return keys
	}

	trimmed := strings.TrimLeft(num, "0")
	if trimmed == "" && num != "" {
		trimmed = "0"
	}

	for _, n := range []string{num, trimmed} {
		if n == "" {
			continue
		}
		keys.Add(ser + "|" + n)
		keys.Add(strings.ToLower(ser + n))
	}
	if len(keys) == 0 {
		keys.Add(ser + "|")
	}
	return keys
}

// BuildTattooKeys derives matching keys from a free-form tattoo field, which
// usually concatenates series and number ("RGN 1234", "RGN-1234", "rgn1234").
func BuildTattooKeys(tattoo string) KeySet {
	keys := KeySet{}
	t := strings.TrimSpace(tattoo)
	if t == "" {
		return keys
	}

	compact := strings.ToLower(strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '/':
			return -1
		}
		return r
	}, t))
	keys.Add(compact)

	// Split the trailing digit run off the prefix so "RGN 0012" also matches
	// series/number records.
	i := len(compact)
	for i > 0 && compact[i-1] >= '0' && compact[i-1] <= '9' {
		i--
	}
	if i > 0 && i < len(compact) {
		keys.Merge(BuildIdentityKeys(compact[:i], compact[i:]))
	}
	return keys
}
