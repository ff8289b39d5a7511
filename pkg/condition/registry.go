package condition

// registry maps an operator symbol (the first token after '+') to its
// compiler. Lookup happens once at build time; it is never consulted on
// the event-processing hot path.
var registry = map[string]compilerFn{
	"exists":     compileExists,
	"not_exists": compileNotExists,

	"s_eq": compileStringCompare(stringEq),
	"s_ne": compileStringCompare(stringNe),
	"s_lt": compileStringCompare(stringLt),
	"s_le": compileStringCompare(stringLe),
	"s_gt": compileStringCompare(stringGt),
	"s_ge": compileStringCompare(stringGe),

	"s_eq_n": compileStringEqN,

	"i_eq": compileIntCompare(intEq),
	"i_ne": compileIntCompare(intNe),
	"i_lt": compileIntCompare(intLt),
	"i_le": compileIntCompare(intLe),
	"i_gt": compileIntCompare(intGt),
	"i_ge": compileIntCompare(intGe),

	"r_match":     compileRegexMatch,
	"r_not_match": compileRegexNotMatch,

	"ip_cidr": compileIPCidr,
}
