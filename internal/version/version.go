// Package version orders Debian package version strings.
//
// Versions have the form [epoch:]upstream_version[-debian_revision]. Each
// part is compared as alternating runs of non-digits and digits: non-digit
// runs by a modified ASCII order in which '~' sorts before everything,
// including the end of the string, and letters sort before other symbols;
// digit runs numerically.
//
// Malformed input is never rejected. It is split and compared with the same
// rules, so the ordering stays total and deterministic.
package version

import (
	"sort"
	"strings"
)

// Compare returns -1, 0 or 1 depending on whether a is older than, equal to
// or newer than b. Anything from the first '/' on is ignored, so keys of the
// form "version/arch" compare by version alone.
func Compare(a, b string) int {
	va, vb := parse(Strip(a)), parse(Strip(b))

	if c := compareNumeric(va.epoch, vb.epoch); c != 0 {
		return c
	}
	if c := compareRuns(va.upstream, vb.upstream); c != 0 {
		return c
	}
	return compareRuns(va.revision, vb.revision)
}

// Less reports whether a is older than b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Strip drops an "/arch" suffix from a version key.
func Strip(v string) string {
	if i := strings.IndexByte(v, '/'); i >= 0 {
		return v[:i]
	}
	return v
}

// SortDescending orders versions newest first. Equal versions keep their
// relative order.
func SortDescending(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Less(versions[j], versions[i])
	})
}

type parsed struct {
	epoch    string
	upstream string
	revision string
}

func parse(v string) parsed {
	v = strings.TrimSpace(v)

	var p parsed
	if i := strings.IndexByte(v, ':'); i >= 0 && isDigits(v[:i]) {
		p.epoch = v[:i]
		v = v[i+1:]
	}
	if i := strings.LastIndexByte(v, '-'); i >= 0 {
		p.upstream, p.revision = v[:i], v[i+1:]
	} else {
		p.upstream = v
	}
	return p
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// order gives the weight of a byte inside a non-digit run. The end of the
// string weighs 0, so only '~' sorts before it.
func order(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	c := s[i]
	switch {
	case isDigit(c):
		return 0
	case isLetter(c):
		return int(c)
	case c == '~':
		return -1
	default:
		return int(c) + 256
	}
}

func compareRuns(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		// non-digit prefix
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac, bc := order(a, i), order(b, j)
			if ac != bc {
				return sign(ac - bc)
			}
			i++
			j++
		}

		// digit run
		si := i
		for i < len(a) && isDigit(a[i]) {
			i++
		}
		sj := j
		for j < len(b) && isDigit(b[j]) {
			j++
		}
		if c := compareNumeric(a[si:i], b[sj:j]); c != 0 {
			return c
		}
	}
	return 0
}

// compareNumeric compares two digit strings by value without converting
// them, so arbitrarily long runs cannot overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return sign(len(a) - len(b))
	}
	return strings.Compare(a, b)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
