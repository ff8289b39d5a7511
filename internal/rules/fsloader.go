// Package rules loads detection rule documents from a directory tree.
package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/edr-filterd/filterd/pkg/sigma"
)

func isYAML(p string) bool {
	l := strings.ToLower(p)
	return strings.HasSuffix(l, ".yml") || strings.HasSuffix(l, ".yaml")
}

// LoadDirRecursive walks root, decoding every .yml/.yaml file as a rule
// document. A malformed rule aborts the whole load with the offending
// file's path attached, since rule loading is a build-time, strict
// operation: correctness here is checked once, at startup or reload.
func LoadDirRecursive(root string) ([]sigma.RuleDoc, error) {
	var out []sigma.RuleDoc
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(p) {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("rules: read %s: %w", p, err)
		}
		doc, err := sigma.LoadYAML(b)
		if err != nil {
			return fmt.Errorf("rules: %s: %w", p, err)
		}
		out = append(out, doc)
		return nil
	})
	return out, err
}
