package condition

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/edr-filterd/filterd/pkg/fieldpath"
)

// MapDocument adapts a tree of map[string]any / []any / scalar values,
// the shape produced by encoding/json.Unmarshal into `any`, to the
// Document capability. It is the default event representation used by the
// rest of this module; swapping the underlying representation only
// requires a new Document implementation.
type MapDocument struct {
	root any
}

// NewMapDocument wraps an already-decoded event tree.
func NewMapDocument(root any) MapDocument {
	return MapDocument{root: root}
}

// DecodeMapDocument unmarshals raw JSON into a MapDocument. It decodes
// numbers with json.Decoder.UseNumber rather than plain
// json.Unmarshal, so an integer is preserved as a json.Number all the
// way to toLeaf's range check instead of first being rounded through
// float64 by the decoder itself: json.Unmarshal alone would silently
// corrupt an integer literal beyond 2^53 before any int64 sanity check
// ever saw it.
func DecodeMapDocument(raw []byte) (MapDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return MapDocument{}, err
	}
	return MapDocument{root: root}, nil
}

// Root returns the decoded tree the document wraps, for callers (such as
// the literal prefilter in pkg/ruleset) that need to walk raw values
// rather than go through the Document capability.
func (d MapDocument) Root() any {
	return d.root
}

func (d MapDocument) Lookup(path string) (Leaf, bool) {
	v, ok := navigate(d.root, path)
	if !ok {
		return nil, false
	}
	return toLeaf(v)
}

func (d MapDocument) Has(path string) bool {
	_, ok := navigate(d.root, path)
	return ok
}

// navigate walks a canonical "/a/b/c" path through nested
// map[string]any/[]any, returning the raw value if every segment resolves.
// It splits the path on '/' before unescaping each segment, so a
// literal '/' inside a field name (encoded as "~1" by
// fieldpath.Normalize) is only ever decoded after the real segment
// separators have already been found. Decoding "~1" first would make
// an escaped literal slash indistinguishable from a real one.
func navigate(root any, path string) (any, bool) {
	path = NormalizePath(path)
	rawSegments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := root
	for _, raw := range rawSegments {
		seg := fieldpath.UnescapeSegment(raw)
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func toLeaf(v any) (Leaf, bool) {
	switch t := v.(type) {
	case nil:
		return leaf{kind: KindNull}, true
	case string:
		return leaf{kind: KindString, str: t}, true
	case bool:
		return leaf{kind: KindBool}, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return leaf{kind: KindInt, i: i}, true
		}
		return leaf{kind: KindObject}, true // fractional/out-of-range: not an int
	case float64:
		if i := int64(t); float64(i) == t {
			return leaf{kind: KindInt, i: i}, true
		}
		return leaf{kind: KindObject}, true
	case int:
		return leaf{kind: KindInt, i: int64(t)}, true
	case int64:
		return leaf{kind: KindInt, i: t}, true
	case map[string]any:
		return leaf{kind: KindObject}, true
	case []any:
		return leaf{kind: KindArray}, true
	default:
		return leaf{kind: KindObject}, true
	}
}
