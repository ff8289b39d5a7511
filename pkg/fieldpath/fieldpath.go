// Package fieldpath implements the canonical field-path normalisation
// shared by the condition compiler and by anything that needs to talk
// about a rule's fields in the same terms it does: a dotted, user-facing
// field name like "user.name" always normalises to the same
// slash-delimited pointer, "/user/name", regardless of which package
// asks. Promoted out of pkg/condition so pkg/sigma and pkg/ruleset can
// reuse the exact same normaliser instead of growing their own,
// mirroring engine_sigma_by_golang/compiler/field_mapping.go's dedicated
// field-mapping helper.
package fieldpath

import "strings"

// ReferenceAnchor marks an argument token as a reference to another
// field in the same event, rather than a literal.
const ReferenceAnchor = '$'

// Normalize converts a user-facing dotted field name into the canonical
// slash-delimited pointer notation: a leading '/' is added if missing,
// and every '.' becomes '/'. Empty input normalizes to "/".
//
// A segment may carry JSON-Pointer-style escapes ("~1" for a literal
// '/', "~0" for a literal '~') so a field name containing a raw slash
// or tilde can still be expressed in dotted form. Normalize does not
// decode those escapes itself. It leaves "~0"/"~1" as literal text in
// the returned path. Decoding them here, before segments are rejoined
// with '/', would make an escaped literal slash indistinguishable from
// a real segment separator once the path is split again. Callers that
// walk the canonical path (see pkg/condition's navigate) must split on
// '/' first and only then unescape each segment with UnescapeSegment.
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return "/" + strings.Join(strings.Split(p[1:], "."), "/")
}

// UnescapeSegment decodes the JSON-Pointer-style escapes in a single
// path segment obtained by splitting a Normalize'd path on '/': "~1"
// becomes a literal '/' and "~0" becomes a literal '~'.
func UnescapeSegment(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '~' && i+1 < len(s) {
			switch s[i+1] {
			case '0':
				b.WriteByte('~')
				i++
				continue
			case '1':
				b.WriteByte('/')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
