package condition

// Predicate is a pure, closed-over function from an event document to a
// boolean. It emits exactly one trace line per invocation and never
// panics: every internal resolution failure collapses to false plus a
// failure trace.
type Predicate func(doc Document) bool

// resolveString fetches field as a string leaf. Absent path or wrong kind
// both report ok=false; the caller is expected to treat that uniformly as
// a runtime resolution failure.
func resolveString(doc Document, field string) (string, bool) {
	l, ok := doc.Lookup(field)
	if !ok {
		return "", false
	}
	return l.AsString()
}

// resolveInt fetches field as an int64 leaf.
func resolveInt(doc Document, field string) (int64, bool) {
	l, ok := doc.Lookup(field)
	if !ok {
		return 0, false
	}
	return l.AsInt()
}

// resolveStringArg resolves an argument token (literal or reference)
// against doc to its right-hand string value.
func resolveStringArg(doc Document, tok argToken) (string, bool) {
	if tok.isRef {
		return resolveString(doc, tok.refPath)
	}
	return tok.literal, true
}

// resolveIntArg resolves an argument token to its right-hand int64 value.
// intLiteral/hasIntLiteral hold the build-time-parsed literal when the
// token is not a reference.
func resolveIntArg(doc Document, tok argToken, intLiteral int64, hasIntLiteral bool) (int64, bool) {
	if tok.isRef {
		return resolveInt(doc, tok.refPath)
	}
	return intLiteral, hasIntLiteral
}
