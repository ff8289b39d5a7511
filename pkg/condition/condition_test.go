package condition

import (
	"encoding/json"
	"testing"
)

func mustDoc(t *testing.T, jsonText string) MapDocument {
	t.Helper()
	d, err := DecodeMapDocument([]byte(jsonText))
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return d
}

type traceCapture struct{ lines []string }

func (c *traceCapture) Trace(line string) { c.lines = append(c.lines, line) }

func compile(t *testing.T, field, opSpec string) (Predicate, *traceCapture) {
	t.Helper()
	tr := &traceCapture{}
	p, err := Compile(map[string]any{field: opSpec}, tr)
	if err != nil {
		t.Fatalf("compile %s: %v: %v", field, opSpec, err)
	}
	return p, tr
}

func TestScenario1StringEq(t *testing.T) {
	p, tr := compile(t, "user.name", "+s_eq/root")

	if !p(mustDoc(t, `{"user":{"name":"root"}}`)) {
		t.Fatalf("expected true for matching name")
	}
	if len(tr.lines) != 1 || tr.lines[0] != `{"user.name":"+s_eq/root"} Condition Success` {
		t.Fatalf("unexpected success trace: %#v", tr.lines)
	}

	tr.lines = nil
	if p(mustDoc(t, `{"user":{"name":"nobody"}}`)) {
		t.Fatalf("expected false for mismatching name")
	}
	if len(tr.lines) != 1 || tr.lines[0] != `{"user.name":"+s_eq/root"} Condition Failure` {
		t.Fatalf("unexpected failure trace: %#v", tr.lines)
	}

	tr.lines = nil
	if p(mustDoc(t, `{}`)) {
		t.Fatalf("expected false for missing field")
	}
}

func TestScenario2IPCidr(t *testing.T) {
	p, _ := compile(t, "src.ip", "+ip_cidr/192.168.0.0/16")

	if !p(mustDoc(t, `{"src":{"ip":"192.168.7.42"}}`)) {
		t.Fatalf("expected true inside network")
	}
	if p(mustDoc(t, `{"src":{"ip":"10.0.0.1"}}`)) {
		t.Fatalf("expected false outside network")
	}
	if p(mustDoc(t, `{"src":{"ip":"not-an-ip"}}`)) {
		t.Fatalf("expected false for unparseable ip")
	}
}

func TestScenario3IntGeWithReference(t *testing.T) {
	p, _ := compile(t, "a", "+i_ge/$b")

	if !p(mustDoc(t, `{"a":5,"b":5}`)) {
		t.Fatalf("expected true for 5 >= 5")
	}
	if p(mustDoc(t, `{"a":4,"b":5}`)) {
		t.Fatalf("expected false for 4 >= 5")
	}
	if p(mustDoc(t, `{"a":"4","b":5}`)) {
		t.Fatalf("expected false for type mismatch")
	}
}

func TestScenario4RegexMatch(t *testing.T) {
	p, _ := compile(t, "email", `+r_match/([^ @]+)@([^ @]+)`)

	if !p(mustDoc(t, `{"email":"x@y"}`)) {
		t.Fatalf("expected true for x@y")
	}
	if p(mustDoc(t, `{"email":"xy"}`)) {
		t.Fatalf("expected false for xy")
	}
	if p(mustDoc(t, `{"email":123}`)) {
		t.Fatalf("expected false for non-string field")
	}
}

func TestScenario5StringEqN(t *testing.T) {
	p, _ := compile(t, "m", "+s_eq_n/3/abcdef")

	if !p(mustDoc(t, `{"m":"abcxyz"}`)) {
		t.Fatalf("expected true: shared 3-byte prefix")
	}
	if p(mustDoc(t, `{"m":"abz"}`)) {
		t.Fatalf("expected false: differs within first 3 bytes")
	}
	if !p(mustDoc(t, `{"m":"ab"}`)) {
		t.Fatalf("expected true: compares full 2-byte overlap")
	}
}

func TestScenario6NotExists(t *testing.T) {
	p, _ := compile(t, "x", "+not_exists")

	if !p(mustDoc(t, `{}`)) {
		t.Fatalf("expected true for absent field")
	}
	if p(mustDoc(t, `{"x":null}`)) {
		t.Fatalf("expected false for present-but-null field")
	}
}

func TestScenario7BadRegexFailsAtBuild(t *testing.T) {
	_, err := Compile(map[string]any{"x": `+r_match/(\w{`}, NopTracer)
	if err == nil {
		t.Fatalf("expected build error for uncompilable regex")
	}
	var be *BuildError
	if !asBuildError(err, &be) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if be.Kind != ValueError {
		t.Fatalf("expected ValueError, got %v", be.Kind)
	}
}

func asBuildError(err error, target **BuildError) bool {
	if be, ok := err.(*BuildError); ok {
		*target = be
		return true
	}
	return false
}

func TestStringEqNZeroAlwaysTrue(t *testing.T) {
	p, _ := compile(t, "m", "+s_eq_n/0/anything")
	if !p(mustDoc(t, `{"m":"totally different"}`)) {
		t.Fatalf("n=0 must always be true for two strings")
	}
}

func TestStringEqNLongerThanOperands(t *testing.T) {
	p, _ := compile(t, "m", "+s_eq_n/100/ab")
	if !p(mustDoc(t, `{"m":"ab"}`)) {
		t.Fatalf("n greater than both lengths should compare the full overlap")
	}
	if p(mustDoc(t, `{"m":"ac"}`)) {
		t.Fatalf("differing overlap must fail")
	}
}

func TestCidrPrefixZeroAdmitsEverything(t *testing.T) {
	p, _ := compile(t, "ip", "+ip_cidr/0.0.0.0/0")
	if !p(mustDoc(t, `{"ip":"8.8.8.8"}`)) {
		t.Fatalf("/0 must admit every address")
	}
}

func TestCidrPrefix32AdmitsExactAddressOnly(t *testing.T) {
	p, _ := compile(t, "ip", "+ip_cidr/10.0.0.5/32")
	if !p(mustDoc(t, `{"ip":"10.0.0.5"}`)) {
		t.Fatalf("/32 must admit the exact address")
	}
	if p(mustDoc(t, `{"ip":"10.0.0.6"}`)) {
		t.Fatalf("/32 must reject a neighboring address")
	}
}

func TestIntRejectsFractionalJSONNumber(t *testing.T) {
	p, _ := compile(t, "a", "+i_eq/4")
	if p(mustDoc(t, `{"a":4.5}`)) {
		t.Fatalf("fractional JSON number must not satisfy an int comparator")
	}
}

func TestRegexNotMatchOnMissingFieldIsFalse(t *testing.T) {
	p, _ := compile(t, "x", "+r_not_match/foo")
	if p(mustDoc(t, `{}`)) {
		t.Fatalf("r_not_match on missing field must be false, not true")
	}
}

func TestNegationAsymmetryStringNe(t *testing.T) {
	p, _ := compile(t, "x", "+s_ne/foo")
	// present and typed correctly, non-equal -> true
	if !p(mustDoc(t, `{"x":"bar"}`)) {
		t.Fatalf("s_ne should be true for a present, differing string")
	}
	// absent -> false (s_ne is not a proxy for not_exists)
	if p(mustDoc(t, `{}`)) {
		t.Fatalf("s_ne on an absent field must be false")
	}
}

func TestArityErrors(t *testing.T) {
	cases := []string{
		"+s_eq",
		"+s_eq/a/b",
		"+s_eq_n/3",
		"+ip_cidr/10.0.0.0",
		"+exists/x",
	}
	for _, spec := range cases {
		_, err := Compile(map[string]any{"f": spec}, NopTracer)
		if err == nil {
			t.Fatalf("expected arity error for %q", spec)
		}
	}
}

func TestUnknownOperator(t *testing.T) {
	_, err := Compile(map[string]any{"f": "+nope/x"}, NopTracer)
	if err == nil {
		t.Fatalf("expected unknown-operator error")
	}
	var be *BuildError
	if !asBuildError(err, &be) || be.Kind != UnknownOperatorError {
		t.Fatalf("expected UnknownOperatorError, got %v", err)
	}
}

func TestShapeErrors(t *testing.T) {
	if _, err := Compile(map[string]any{}, NopTracer); err == nil {
		t.Fatalf("expected shape error for empty spec")
	}
	if _, err := Compile(map[string]any{"a": "+s_eq/1", "b": "+s_eq/2"}, NopTracer); err == nil {
		t.Fatalf("expected shape error for multi-entry spec")
	}
	if _, err := Compile(map[string]any{"a": 5}, NopTracer); err == nil {
		t.Fatalf("expected shape error for non-string value")
	}
	if _, err := Compile(map[string]any{"a": "s_eq/1"}, NopTracer); err == nil {
		t.Fatalf("expected shape error for missing '+' prefix")
	}
}

func TestPathNormalizationIdempotence(t *testing.T) {
	cases := []string{"", "a", "a.b.c", "/a/b", ".a.b"}
	for _, c := range cases {
		once := NormalizePath(c)
		twice := NormalizePath(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q: %q vs %q", c, once, twice)
		}
	}
}

// TestEscapedSlashSegmentAddressesLiteralFieldName guards against the
// canonical form baking "~1" into an actual '/' before segments are
// split back apart, which would make a field literally named "a/b"
// unreachable (the lookup would instead try root["a"]["b"]).
func TestEscapedSlashSegmentAddressesLiteralFieldName(t *testing.T) {
	p, _ := compile(t, "a~1b", "+s_eq/root")
	doc := NewMapDocument(map[string]any{"a/b": "root"})
	if !p(doc) {
		t.Fatalf("expected a~1b to resolve to the literal field \"a/b\"")
	}

	nested := NewMapDocument(map[string]any{"a": map[string]any{"b": "root"}})
	if p(nested) {
		t.Fatalf("a~1b must not resolve through nested a.b, only through the literal a/b key")
	}
}

func TestReferenceSymmetry(t *testing.T) {
	byRef, _ := compile(t, "f", "+s_eq/$g")
	byLit, _ := compile(t, "f", "+s_eq/hello")

	doc := mustDoc(t, `{"f":"hello","g":"hello"}`)
	if byRef(doc) != byLit(doc) {
		t.Fatalf("reference and literal comparisons should agree when g == literal")
	}
}

func TestDeterminism(t *testing.T) {
	p, tr := compile(t, "x", "+s_eq/y")
	doc := mustDoc(t, `{"x":"y"}`)
	for i := 0; i < 5; i++ {
		if !p(doc) {
			t.Fatalf("predicate must be deterministic across repeated calls")
		}
	}
	for _, l := range tr.lines {
		if l != `{"x":"+s_eq/y"} Condition Success` {
			t.Fatalf("unexpected trace line: %s", l)
		}
	}
}

func TestDecodeMapDocumentWithJSONNumber(t *testing.T) {
	var v any
	if err := json.Unmarshal([]byte(`{"a":10}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doc := NewMapDocument(v)
	l, ok := doc.Lookup("a")
	if !ok || l.Kind() != KindInt {
		t.Fatalf("expected int leaf for a")
	}
	n, ok := l.AsInt()
	if !ok || n != 10 {
		t.Fatalf("expected AsInt()==10, got %d ok=%v", n, ok)
	}
}

// TestDecodeMapDocumentPreservesLargeIntegers guards against
// DecodeMapDocument silently rounding an integer larger than 2^53
// through float64 before toLeaf's range check ever runs.
func TestDecodeMapDocumentPreservesLargeIntegers(t *testing.T) {
	const want int64 = 9007199254740993 // 2^53 + 1, not exactly representable as float64
	doc, err := DecodeMapDocument([]byte(`{"a":9007199254740993}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	l, ok := doc.Lookup("a")
	if !ok || l.Kind() != KindInt {
		t.Fatalf("expected int leaf for a, got ok=%v", ok)
	}
	n, ok := l.AsInt()
	if !ok || n != want {
		t.Fatalf("expected AsInt()==%d, got %d ok=%v (integer corrupted by float64 rounding)", want, n, ok)
	}

	p, err := Compile(map[string]any{"a": "+i_eq/9007199254740993"}, NopTracer)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !p(doc) {
		t.Fatalf("expected i_eq to match the exact large integer literal")
	}
}

// TestDecodeMapDocumentRejectsOutOfRangeIntegers checks that an integer
// literal too large for int64 fails closed (kind object, not int)
// instead of being silently truncated or misclassified.
func TestDecodeMapDocumentRejectsOutOfRangeIntegers(t *testing.T) {
	doc, err := DecodeMapDocument([]byte(`{"a":99999999999999999999999999}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	l, ok := doc.Lookup("a")
	if !ok {
		t.Fatalf("expected field a to resolve")
	}
	if l.Kind() == KindInt {
		t.Fatalf("expected an out-of-int64-range number to not be classified as an int leaf")
	}
	if _, ok := l.AsInt(); ok {
		t.Fatalf("expected AsInt() to fail for an out-of-range number")
	}
}
