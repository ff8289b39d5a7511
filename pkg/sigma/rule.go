// Package sigma models a detection rule document: a set of named
// selections, each a boolean combination of condition-engine filter
// specs, composed by a boolean condition string ("selection1 and not
// selection2", "all of them", "2 of selection_*"). It is the rule-level
// layer built on top of pkg/condition's single-predicate compiler.
package sigma

// Predicate is a single-entry filter spec, the exact grammar
// pkg/condition.Compile consumes: {field: "+op/arg1/arg2/..."}.
type Predicate map[string]any

// SelectionGroup is an AND of predicates.
type SelectionGroup struct {
	Predicates []Predicate
}

// Selection is an OR of groups: a YAML mapping selection compiles to one
// group (its keys ANDed together); a YAML list of mappings compiles to one
// group per list item, ORed together.
type Selection struct {
	Name   string
	Groups []SelectionGroup
}

// RuleDoc is a detection rule as loaded from YAML, before compilation.
type RuleDoc struct {
	ID         string
	Title      string
	Level      string
	Logsource  map[string]any
	Selections map[string]Selection
	Condition  string
}
