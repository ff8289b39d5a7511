// Package ruleset compiles many detection rules into one engine that
// evaluates a single event against every rule, using an Aho-Corasick
// literal prefilter to skip rules whose required literal strings are
// provably absent from the event.
package ruleset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"github.com/edr-filterd/filterd/pkg/condition"
	"github.com/edr-filterd/filterd/pkg/fieldpath"
	"github.com/edr-filterd/filterd/pkg/sigma"
)

// MatchedRule is one rule that matched a given event.
type MatchedRule struct {
	RuleID string
	Title  string
	Level  string
}

// Ruleset evaluates every compiled rule against an event, using a literal
// prefilter to avoid running rules whose literal arguments are absent.
type Ruleset struct {
	rules        map[string]*sigma.CompiledRule
	rulesNoLits  []string // rule IDs with no literal to prefilter on
	automaton    *ac.AhoCorasick
	patterns     []string                        // index-aligned with the automaton's pattern order
	litToRules   map[string]map[string]struct{}  // lowercase literal -> set(ruleID)
	fieldToRules map[string]map[string]struct{}  // canonical field path -> set(ruleID)
}

// Compile builds a Ruleset from a set of already-loaded rule documents.
// tracer is shared by every predicate compiled across every rule.
func Compile(docs []sigma.RuleDoc, tracer condition.Tracer) (*Ruleset, error) {
	rs := &Ruleset{
		rules:        map[string]*sigma.CompiledRule{},
		litToRules:   map[string]map[string]struct{}{},
		fieldToRules: map[string]map[string]struct{}{},
	}

	var patterns []string
	seen := map[string]int{}

	for _, doc := range docs {
		compiled, err := sigma.CompileRule(doc, tracer)
		if err != nil {
			return nil, fmt.Errorf("ruleset: %w", err)
		}
		if _, dup := rs.rules[doc.ID]; dup {
			return nil, fmt.Errorf("ruleset: duplicate rule id %q", doc.ID)
		}
		rs.rules[doc.ID] = compiled

		for field := range compiled.Fields {
			if _, ok := rs.fieldToRules[field]; !ok {
				rs.fieldToRules[field] = map[string]struct{}{}
			}
			rs.fieldToRules[field][doc.ID] = struct{}{}
		}

		if len(compiled.Literals) == 0 {
			rs.rulesNoLits = append(rs.rulesNoLits, doc.ID)
			continue
		}
		for lit := range compiled.Literals {
			if _, ok := rs.litToRules[lit]; !ok {
				rs.litToRules[lit] = map[string]struct{}{}
			}
			rs.litToRules[lit][doc.ID] = struct{}{}
			if _, ok := seen[lit]; !ok {
				seen[lit] = len(patterns)
				patterns = append(patterns, lit)
			}
		}
	}

	if len(patterns) > 0 {
		builder := ac.NewAhoCorasickBuilder(ac.Opts{
			AsciiCaseInsensitive: true,
			MatchKind:            ac.LeftMostLongestMatch,
		})
		built := builder.Build(patterns)
		rs.automaton = &built
		rs.patterns = patterns
	}

	return rs, nil
}

// candidates returns the set of rule IDs that might match doc: every
// rule with no literal, plus every rule whose literal was found by the
// Aho-Corasick scan over the event's flattened string values.
func (rs *Ruleset) candidates(rawEvent any) map[string]struct{} {
	out := make(map[string]struct{}, len(rs.rulesNoLits))
	for _, id := range rs.rulesNoLits {
		out[id] = struct{}{}
	}
	if rs.automaton == nil {
		for id := range rs.rules {
			out[id] = struct{}{}
		}
		return out
	}

	var sb strings.Builder
	flattenStrings(rawEvent, &sb)
	for _, m := range rs.automaton.FindAll(sb.String()) {
		idx := m.Pattern()
		if idx < 0 || idx >= len(rs.patterns) {
			continue
		}
		lit := rs.patterns[idx]
		for id := range rs.litToRules[lit] {
			out[id] = struct{}{}
		}
	}
	return out
}

// Evaluate runs every candidate rule's compiled condition against doc,
// where rawEvent is the same tree doc wraps (needed for the prefilter's
// literal scan, which operates over plain values rather than through the
// Document capability).
func (rs *Ruleset) Evaluate(rawEvent any, doc condition.Document) ([]MatchedRule, error) {
	var out []MatchedRule
	for id := range rs.candidates(rawEvent) {
		rule := rs.rules[id]
		ok, err := rule.Evaluate(doc)
		if err != nil {
			return nil, fmt.Errorf("ruleset: rule %s: %w", id, err)
		}
		if ok {
			out = append(out, MatchedRule{RuleID: id, Title: rule.Doc.Title, Level: rule.Doc.Level})
		}
	}
	return out, nil
}

// RulesForField returns the IDs of every rule that reads path, an
// impact-analysis helper for questions like "which rules break if this
// field is renamed or stops being sent". path is normalised through
// fieldpath.Normalize before lookup, so a caller can pass either the
// dotted form ("user.name") or the canonical pointer form ("/user/name")
// and get the same answer.
func (rs *Ruleset) RulesForField(path string) []string {
	canonical := fieldpath.Normalize(path)
	rules := rs.fieldToRules[canonical]
	out := make([]string, 0, len(rules))
	for id := range rules {
		out = append(out, id)
	}
	return out
}

// flattenStrings concatenates every string and number leaf of a decoded
// JSON tree (map[string]any/[]any/string/number) into sb, space-separated,
// so the Aho-Corasick scan can run once over the whole event. Bool and
// null leaves are skipped.
func flattenStrings(v any, sb *strings.Builder) {
	switch t := v.(type) {
	case map[string]any:
		for _, vv := range t {
			flattenStrings(vv, sb)
		}
	case []any:
		for _, vv := range t {
			flattenStrings(vv, sb)
		}
	case string:
		sb.WriteString(t)
		sb.WriteByte(' ')
	case json.Number:
		sb.WriteString(t.String())
		sb.WriteByte(' ')
	case float64:
		sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		sb.WriteByte(' ')
	case bool, nil:
		// booleans/null never satisfy an equality-family literal
	}
}
