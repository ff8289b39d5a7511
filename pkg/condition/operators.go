package condition

import (
	"fmt"
	"regexp"
	"strconv"
)

// buildCtx bundles everything a helper compiler needs that is common
// across every operator: the canonical field, the operator symbol, its
// raw argument tokens, the tracer to close over, and the two trace
// labels precomputed once at build time, so
// the hot path performs no formatting.
type buildCtx struct {
	field   string
	op      string
	args    []string
	tracer  Tracer
	success string
	failure string
}

func (c buildCtx) trace(ok bool) {
	if ok {
		c.tracer.Trace(c.success)
	} else {
		c.tracer.Trace(c.failure)
	}
}

type compilerFn func(c buildCtx) (Predicate, error)

func arityError(c buildCtx, want int) error {
	return newBuildError(ArityError, c.op, c.field,
		fmt.Errorf("expected %d argument token(s), got %d", want, len(c.args)))
}

// --- existence ---

func compileExists(c buildCtx) (Predicate, error) {
	if len(c.args) != 0 {
		return nil, arityError(c, 0)
	}
	return func(doc Document) bool {
		ok := doc.Has(c.field)
		c.trace(ok)
		return ok
	}, nil
}

func compileNotExists(c buildCtx) (Predicate, error) {
	if len(c.args) != 0 {
		return nil, arityError(c, 0)
	}
	return func(doc Document) bool {
		ok := !doc.Has(c.field)
		c.trace(ok)
		return ok
	}, nil
}

// --- string comparators ---

func compileStringCompare(cmp func(a, b string) bool) compilerFn {
	return func(c buildCtx) (Predicate, error) {
		if len(c.args) != 1 {
			return nil, arityError(c, 1)
		}
		arg := classifyToken(c.args[0])
		return func(doc Document) bool {
			a, ok := resolveString(doc, c.field)
			if !ok {
				c.trace(false)
				return false
			}
			b, ok := resolveStringArg(doc, arg)
			if !ok {
				c.trace(false)
				return false
			}
			result := cmp(a, b)
			c.trace(result)
			return result
		}, nil
	}
}

func compileStringEqN(c buildCtx) (Predicate, error) {
	if len(c.args) != 2 {
		return nil, arityError(c, 2)
	}
	n, err := strconv.Atoi(c.args[0])
	if err != nil || n < 0 {
		return nil, newBuildError(ValueError, c.op, c.field, fmt.Errorf("invalid prefix length %q", c.args[0]))
	}
	arg := classifyToken(c.args[1])
	return func(doc Document) bool {
		a, ok := resolveString(doc, c.field)
		if !ok {
			c.trace(false)
			return false
		}
		b, ok := resolveStringArg(doc, arg)
		if !ok {
			c.trace(false)
			return false
		}
		result := stringEqPrefixN(a, b, n)
		c.trace(result)
		return result
	}, nil
}

// --- integer comparators ---

func compileIntCompare(cmp func(a, b int64) bool) compilerFn {
	return func(c buildCtx) (Predicate, error) {
		if len(c.args) != 1 {
			return nil, arityError(c, 1)
		}
		arg := classifyToken(c.args[0])
		var lit int64
		hasLit := false
		if !arg.isRef {
			v, err := strconv.ParseInt(arg.literal, 10, 64)
			if err != nil {
				return nil, newBuildError(ValueError, c.op, c.field, fmt.Errorf("invalid integer literal %q", arg.literal))
			}
			lit, hasLit = v, true
		}
		return func(doc Document) bool {
			a, ok := resolveInt(doc, c.field)
			if !ok {
				c.trace(false)
				return false
			}
			b, ok := resolveIntArg(doc, arg, lit, hasLit)
			if !ok {
				c.trace(false)
				return false
			}
			result := cmp(a, b)
			c.trace(result)
			return result
		}, nil
	}
}

// --- regex ---

func compileRegexMatch(c buildCtx) (Predicate, error) {
	if len(c.args) != 1 {
		return nil, arityError(c, 1)
	}
	re, err := regexp.Compile(c.args[0])
	if err != nil {
		return nil, newBuildError(ValueError, c.op, c.field, err)
	}
	return func(doc Document) bool {
		v, ok := resolveString(doc, c.field)
		if !ok {
			c.trace(false)
			return false
		}
		result := regexPartialMatch(re, v)
		c.trace(result)
		return result
	}, nil
}

func compileRegexNotMatch(c buildCtx) (Predicate, error) {
	if len(c.args) != 1 {
		return nil, arityError(c, 1)
	}
	re, err := regexp.Compile(c.args[0])
	if err != nil {
		return nil, newBuildError(ValueError, c.op, c.field, err)
	}
	return func(doc Document) bool {
		v, ok := resolveString(doc, c.field)
		if !ok {
			// missing/non-string subject: false, not true.
			c.trace(false)
			return false
		}
		result := !regexPartialMatch(re, v)
		c.trace(result)
		return result
	}, nil
}

// --- IPv4 CIDR ---

func compileIPCidr(c buildCtx) (Predicate, error) {
	if len(c.args) != 2 {
		return nil, arityError(c, 2)
	}
	bounds, err := compileCIDR(c.args[0], c.args[1])
	if err != nil {
		return nil, newBuildError(ValueError, c.op, c.field, err)
	}
	return func(doc Document) bool {
		v, ok := resolveString(doc, c.field)
		if !ok {
			c.trace(false)
			return false
		}
		ip, ok := parseIPv4(v)
		if !ok {
			c.trace(false)
			return false
		}
		result := bounds.contains(ip)
		c.trace(result)
		return result
	}, nil
}
