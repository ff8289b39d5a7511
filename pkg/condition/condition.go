// Package condition implements the build-time operator parser and
// typed runtime evaluator shared by every filter helper of the streaming
// event processor: a declarative one-entry mapping from a field path to a
// symbolic operator/argument string is compiled once into a Predicate, a
// pure closure over an event Document that returns a boolean and emits
// exactly one trace line per evaluation.
package condition

import (
	"encoding/json"
	"fmt"
)

// Compile turns a one-entry filter spec ({field: "+op/arg1/..."}) into a
// Predicate. Compilation is strict: any malformation returns a
// *BuildError and aborts. tracer is closed over by the returned
// predicate and invoked exactly once per Predicate call.
func Compile(spec map[string]any, tracer Tracer) (Predicate, error) {
	if len(spec) != 1 {
		return nil, newBuildError(ShapeError, "", "",
			fmt.Errorf("filter spec must have exactly one entry, got %d", len(spec)))
	}
	var rawField string
	var rawValue any
	for k, v := range spec {
		rawField, rawValue = k, v
	}
	valueStr, ok := rawValue.(string)
	if !ok {
		return nil, newBuildError(ShapeError, "", rawField,
			fmt.Errorf("operator spec must be a string, got %T", rawValue))
	}

	op, args, ok := splitOpSpec(valueStr)
	if !ok {
		return nil, newBuildError(ShapeError, "", rawField,
			fmt.Errorf("operator spec %q must start with '+'", valueStr))
	}

	compile, ok := registry[op]
	if !ok {
		return nil, newBuildError(UnknownOperatorError, op, rawField,
			fmt.Errorf("no compiler registered for operator %q", op))
	}

	if tracer == nil {
		tracer = NopTracer
	}

	specJSON, err := json.Marshal(map[string]string{rawField: valueStr})
	if err != nil {
		return nil, newBuildError(ShapeError, op, rawField, err)
	}
	success, failure := buildTraceLabels(string(specJSON))

	ctx := buildCtx{
		field:   NormalizePath(rawField),
		op:      op,
		args:    args,
		tracer:  tracer,
		success: success,
		failure: failure,
	}
	return compile(ctx)
}

// KnownOperators returns the set of operator symbols registered with the
// dispatcher, primarily for diagnostics and tests.
func KnownOperators() []string {
	out := make([]string, 0, len(registry))
	for op := range registry {
		out = append(out, op)
	}
	return out
}
