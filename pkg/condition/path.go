package condition

import "github.com/edr-filterd/filterd/pkg/fieldpath"

// ReferenceAnchor marks an argument token as a reference to another field
// in the same event, rather than a literal.
const ReferenceAnchor = fieldpath.ReferenceAnchor

// NormalizePath converts a user-facing dotted field name into the engine's
// canonical slash-delimited pointer notation. It is a thin alias over
// pkg/fieldpath.Normalize, the single implementation shared with rule
// loading and field-mapping code in pkg/sigma and pkg/ruleset.
func NormalizePath(p string) string {
	return fieldpath.Normalize(p)
}
