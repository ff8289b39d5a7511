package sigma

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawRule mirrors the on-disk YAML shape, decoded with gopkg.in/yaml.v3
// (a permissive detection-block decode followed by strict validation).
type rawRule struct {
	Title     string         `yaml:"title"`
	ID        string         `yaml:"id"`
	Level     string         `yaml:"level"`
	Logsource map[string]any `yaml:"logsource"`
	Detection map[string]any `yaml:"detection"`
}

// LoadYAML parses one rule document. Selection values may be a mapping
// (single AND-group) or a list of mappings (OR of AND-groups); every
// leaf value must be a filter spec string understood by
// pkg/condition.Compile ("+op/arg1/...").
func LoadYAML(b []byte) (RuleDoc, error) {
	var rr rawRule
	if err := yaml.Unmarshal(b, &rr); err != nil {
		return RuleDoc{}, fmt.Errorf("sigma: parse yaml: %w", err)
	}
	if rr.Detection == nil {
		return RuleDoc{}, fmt.Errorf("sigma: missing detection block")
	}

	selections := map[string]Selection{}
	for name, node := range rr.Detection {
		if name == "condition" {
			continue
		}
		sel, err := parseSelection(name, node)
		if err != nil {
			return RuleDoc{}, err
		}
		selections[name] = sel
	}

	cond, _ := rr.Detection["condition"].(string)
	id := strings.TrimSpace(rr.ID)
	if id == "" {
		id = rr.Title
	}
	if id == "" {
		return RuleDoc{}, fmt.Errorf("sigma: rule has neither id nor title")
	}
	if strings.TrimSpace(cond) == "" {
		return RuleDoc{}, fmt.Errorf("sigma: rule %s missing detection.condition", id)
	}

	return RuleDoc{
		ID:         id,
		Title:      rr.Title,
		Level:      rr.Level,
		Logsource:  rr.Logsource,
		Selections: selections,
		Condition:  strings.TrimSpace(cond),
	}, nil
}

func parseSelection(name string, node any) (Selection, error) {
	switch v := node.(type) {
	case map[string]any:
		preds, err := parsePredicateGroup(name, v)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Name: name, Groups: []SelectionGroup{{Predicates: preds}}}, nil

	case []any:
		var groups []SelectionGroup
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return Selection{}, fmt.Errorf("sigma: selection %s item %d must be a mapping", name, i)
			}
			preds, err := parsePredicateGroup(name, m)
			if err != nil {
				return Selection{}, err
			}
			groups = append(groups, SelectionGroup{Predicates: preds})
		}
		return Selection{Name: name, Groups: groups}, nil

	default:
		return Selection{}, fmt.Errorf("sigma: selection %s must be a mapping or a list of mappings", name)
	}
}

// parsePredicateGroup splits a selection mapping into one single-entry
// Predicate per key, so each compiles independently through
// pkg/condition.Compile and the group is their AND.
func parsePredicateGroup(name string, mp map[string]any) ([]Predicate, error) {
	out := make([]Predicate, 0, len(mp))
	for field, val := range mp {
		opSpec, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("sigma: selection %s field %s: operator spec must be a string", name, field)
		}
		out = append(out, Predicate{field: opSpec})
	}
	return out, nil
}
