package sigma

import (
	"fmt"
	"strings"

	"github.com/edr-filterd/filterd/internal/boolexpr"
	"github.com/edr-filterd/filterd/pkg/condition"
	"github.com/edr-filterd/filterd/pkg/fieldpath"
)

// compiledGroup is an AND of compiled predicates.
type compiledGroup []condition.Predicate

// compiledSelection is an OR of compiledGroups.
type compiledSelection []compiledGroup

// CompiledRule is a RuleDoc with every selection predicate compiled
// through pkg/condition.Compile and its literal-string arguments
// extracted for prefiltering.
type CompiledRule struct {
	Doc        RuleDoc
	selections map[string]compiledSelection
	// Literals holds every literal string argument used by an
	// equality-family operator (s_eq, s_ne, s_eq_n), lowercase, at least
	// 3 bytes long, for the Aho-Corasick prefilter (see pkg/ruleset).
	// Reference arguments and regex/CIDR/int operators are excluded,
	// see collectLiterals below.
	Literals map[string]struct{}
	// Fields holds the canonical (fieldpath.Normalize'd) path of every
	// field this rule's predicates read, keyed the same way the
	// condition engine keys a Document lookup, for callers that want to
	// know a rule's field surface without reaching into its selections.
	Fields map[string]struct{}
}

// CompileRule compiles every selection's predicates and validates the
// shape of the boolean condition string with a dry run over the defined
// selections (the condition evaluator itself resolves names at eval time,
// so a name that matches no selection is not rejected here).
func CompileRule(doc RuleDoc, tracer condition.Tracer) (*CompiledRule, error) {
	dryRun := make(map[string]bool, len(doc.Selections))
	for name := range doc.Selections {
		dryRun[name] = false
	}
	if _, err := boolexpr.Eval(doc.Condition, dryRun); err != nil {
		return nil, fmt.Errorf("sigma: rule %s condition: %w", doc.ID, err)
	}

	compiled := make(map[string]compiledSelection, len(doc.Selections))
	literals := map[string]struct{}{}
	fields := map[string]struct{}{}

	for name, sel := range doc.Selections {
		var groups compiledSelection
		for _, g := range sel.Groups {
			var preds compiledGroup
			for _, pred := range g.Predicates {
				p, err := condition.Compile(pred, tracer)
				if err != nil {
					return nil, fmt.Errorf("sigma: rule %s selection %s: %w", doc.ID, name, err)
				}
				preds = append(preds, p)
				collectLiterals(pred, literals)
				collectFields(pred, fields)
			}
			groups = append(groups, preds)
		}
		compiled[name] = groups
	}

	return &CompiledRule{Doc: doc, selections: compiled, Literals: literals, Fields: fields}, nil
}

// Evaluate runs every selection's predicates against doc and resolves the
// rule's boolean condition string over the resulting selection outcomes.
func (r *CompiledRule) Evaluate(doc condition.Document) (bool, error) {
	ctx := make(map[string]bool, len(r.selections))
	for name, sel := range r.selections {
		ctx[name] = evalSelection(sel, doc)
	}
	return boolexpr.Eval(r.Doc.Condition, ctx)
}

func evalSelection(sel compiledSelection, doc condition.Document) bool {
	for _, group := range sel { // OR
		matched := true
		for _, p := range group { // AND
			if !p(doc) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

var equalityOps = map[string]int{
	"s_eq":   1, // literal token index within args
	"s_ne":   1,
	"s_eq_n": 2,
}

// collectLiterals extracts a candidate literal string from a single-entry
// predicate spec, if its operator is in the equality family and its
// argument is a literal (not a $-reference).
func collectLiterals(pred Predicate, out map[string]struct{}) {
	for _, v := range pred {
		spec, ok := v.(string)
		if !ok || len(spec) == 0 || spec[0] != '+' {
			continue
		}
		tokens := strings.Split(spec[1:], "/")
		op := tokens[0]
		idx, ok := equalityOps[op]
		if !ok || idx >= len(tokens) {
			continue
		}
		lit := tokens[idx]
		if len(lit) == 0 || lit[0] == '$' {
			continue
		}
		if len(lit) >= 3 {
			out[strings.ToLower(lit)] = struct{}{}
		}
	}
}

// collectFields records the canonical path of a predicate's field, using
// the same normaliser the condition compiler itself uses internally, so
// a rule's reported field surface always matches what its predicates
// actually looked up at evaluation time.
func collectFields(pred Predicate, out map[string]struct{}) {
	for field := range pred {
		out[fieldpath.Normalize(field)] = struct{}{}
	}
}
