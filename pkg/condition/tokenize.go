package condition

import "strings"

// argToken is a single '/'-delimited token from an operator spec's
// argument list, already classified as literal or reference.
type argToken struct {
	raw     string
	isRef   bool
	literal string // valid when !isRef
	refPath string // canonical path, valid when isRef
}

// splitOpSpec splits an operator-spec value string ("+op/tok1/tok2") into
// the operator symbol and its argument tokens. No escaping is performed
// and no empty token is suppressed.
func splitOpSpec(value string) (op string, args []string, ok bool) {
	if len(value) == 0 || value[0] != '+' {
		return "", nil, false
	}
	parts := strings.Split(value[1:], "/")
	return parts[0], parts[1:], true
}

// classifyToken turns a raw argument token into a literal or a reference,
// a token whose first byte is the reference anchor '$' names
// another field path in the same event.
func classifyToken(raw string) argToken {
	if len(raw) > 0 && raw[0] == ReferenceAnchor {
		return argToken{raw: raw, isRef: true, refPath: NormalizePath(raw[1:])}
	}
	return argToken{raw: raw, literal: raw}
}
