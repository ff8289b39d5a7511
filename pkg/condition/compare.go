package condition

import (
	"encoding/binary"
	"regexp"
)

// stringEq through stringGe implement the six str_* comparators as bytewise
// lexicographic comparisons. Locale/Unicode normalisation
// is explicitly out of scope.
func stringEq(a, b string) bool { return a == b }
func stringNe(a, b string) bool { return a != b }
func stringLt(a, b string) bool { return a < b }
func stringLe(a, b string) bool { return a <= b }
func stringGt(a, b string) bool { return a > b }
func stringGe(a, b string) bool { return a >= b }

// stringEqPrefixN compares the first min(n, len(a), len(b)) bytes of a and
// b for equality. It never fails on short strings: the comparison is over
// whatever overlap exists.
func stringEqPrefixN(a, b string, n int) bool {
	if n < 0 {
		n = 0
	}
	m := n
	if len(a) < m {
		m = len(a)
	}
	if len(b) < m {
		m = len(b)
	}
	return a[:m] == b[:m]
}

func intEq(a, b int64) bool { return a == b }
func intNe(a, b int64) bool { return a != b }
func intLt(a, b int64) bool { return a < b }
func intLe(a, b int64) bool { return a <= b }
func intGt(a, b int64) bool { return a > b }
func intGe(a, b int64) bool { return a >= b }

// regexPartialMatch reports whether re finds a match anywhere in subject.
func regexPartialMatch(re *regexp.Regexp, subject string) bool {
	return re.MatchString(subject)
}

// cidrBounds is the inclusive [lo, hi] u32 range of an IPv4 network,
// computed once at build time.
type cidrBounds struct {
	lo, hi uint32
}

func (c cidrBounds) contains(ip uint32) bool {
	return ip >= c.lo && ip <= c.hi
}

func ipv4ToUint32(ip [4]byte) uint32 {
	return binary.BigEndian.Uint32(ip[:])
}
