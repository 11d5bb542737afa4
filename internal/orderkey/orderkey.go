// Package orderkey generates lexicographically ordered sibling sort keys
// using fractional indexing over a base-62 alphabet. Between returns a key
// strictly between its neighbors; repeated insertion at one point grows key
// length logarithmically rather than colliding.
package orderkey

import (
	"fmt"
	"strings"
)

// alphabet is ASCII-ordered so byte comparison matches key ordering.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = len(alphabet)

var digitIndex = func() map[byte]int {
	m := make(map[byte]int, base)
	for i := 0; i < base; i++ {
		m[alphabet[i]] = i
	}
	return m
}()

// First returns the key for the first item under a parent with no siblings.
func First() string {
	return string(alphabet[base/2])
}

// Validate checks that a key is well-formed: non-empty, alphabet-only, and
// without a trailing minimum digit (which would leave no room below it).
func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("order key must not be empty")
	}
	for i := 0; i < len(key); i++ {
		if _, ok := digitIndex[key[i]]; !ok {
			return fmt.Errorf("order key %q contains invalid character %q", key, key[i])
		}
	}
	if key[len(key)-1] == alphabet[0] {
		return fmt.Errorf("order key %q must not end with the minimum digit", key)
	}
	return nil
}

// Between returns a key strictly between before and after. An empty before
// means "below everything"; an empty after means "above everything". It is
// an error for before to sort at or above after.
func Between(before, after string) (string, error) {
	if before != "" {
		if err := Validate(before); err != nil {
			return "", err
		}
	}
	if after != "" {
		if err := Validate(after); err != nil {
			return "", err
		}
	}
	if before != "" && after != "" && strings.Compare(before, after) >= 0 {
		return "", fmt.Errorf("order key %q is not below %q", before, after)
	}

	var key string
	switch {
	case before == "" && after == "":
		key = First()
	case after == "":
		key = above(before)
	case before == "":
		key = below(after)
	default:
		key = midpoint(before, after)
	}
	if (before != "" && key <= before) || (after != "" && key >= after) {
		// Arithmetic above guarantees betweenness; reaching here means the
		// inputs violated an invariant Validate missed.
		return "", fmt.Errorf("failed to generate order key between %q and %q", before, after)
	}
	return key, nil
}

// above returns a key greater than a by bumping the first non-maximum digit,
// which keeps append-at-end workloads from growing a character per insertion.
func above(a string) string {
	for i := 0; i < len(a); i++ {
		d := digitIndex[a[i]]
		if d < base-1 {
			return a[:i] + string(alphabet[d+1])
		}
	}
	// Every digit is at maximum; extend instead.
	return a + First()
}

// below returns a key smaller than b but still above the open start.
func below(b string) string {
	for i := 0; i < len(b); i++ {
		d := digitIndex[b[i]]
		if d > 1 {
			return b[:i] + string(alphabet[d-1])
		}
		if d == 1 {
			// Decrementing to the minimum digit would leave a trailing
			// minimum; descend into the next position instead.
			return b[:i] + string(alphabet[0]) + First()
		}
	}
	// Unreachable for valid keys (a key cannot be all minimum digits), but
	// keep a sane fallback.
	return b + First()
}

// midpoint returns a digit string strictly between a and b, where a < b and
// either may be empty (empty a = zero, empty b = one). Inputs and output
// never carry a trailing minimum digit.
func midpoint(a, b string) string {
	if b != "" {
		// Strip the common prefix and recurse on the tails.
		n := 0
		for n < len(b) && digitAt(a, n) == b[n] {
			n++
		}
		if n > 0 {
			return b[:n] + midpoint(tail(a, n), b[n:])
		}
	}

	digitA := 0
	if a != "" {
		digitA = digitIndex[a[0]]
	}
	digitB := base
	if b != "" {
		digitB = digitIndex[b[0]]
	}

	if digitB-digitA > 1 {
		mid := (digitA + digitB + 1) / 2
		return string(alphabet[mid])
	}

	// Consecutive leading digits: no room at this position.
	if len(b) > 1 {
		return b[:1]
	}
	return string(alphabet[digitA]) + midpoint(tail(a, 1), "")
}

func digitAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return alphabet[0]
}

func tail(s string, n int) string {
	if n < len(s) {
		return s[n:]
	}
	return ""
}
