// Package extractor parses a single Python source file and emits every
// module it depends on, with relative imports already resolved against the
// file's package position.
package extractor

import (
	"fmt"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcemelt/sourcemelt/internal/pyast"
	"github.com/sourcemelt/sourcemelt/internal/resolver"
)

// Extractor resolves the import targets of a single parsed module against a
// shared Resolver.
type Extractor struct {
	resolver *resolver.Resolver
}

// New builds an Extractor over the given resolver.
func New(r *resolver.Resolver) *Extractor {
	return &Extractor{resolver: r}
}

// Extract walks the full syntax tree of m (not just its top-level
// statements -- a textual import anywhere, including inside a function,
// class, if, or try body, contributes) and returns every dependency as an
// already-resolved, deduplicated, sorted module identifier.
//
// currentModule is the dotted name of the module being extracted, used to
// resolve relative imports against its package position.
func (e *Extractor) Extract(currentModule string, m *pyast.Module) ([]string, error) {
	var deps []string
	var walkErr error

	pyast.Walk(m.Root(), func(n *tree_sitter.Node) {
		if walkErr != nil {
			return
		}
		switch n.Kind() {
		case "import_statement":
			e.extractImport(pyast.ParseImportStatement(n, m.Source), &deps)
		case "import_from_statement":
			if err := e.extractImportFrom(currentModule, pyast.ParseImportFromStatement(n, m.Source), &deps); err != nil {
				walkErr = fmt.Errorf("%s: %w", currentModule, err)
				return
			}
		}
	})

	if walkErr != nil {
		return nil, walkErr
	}
	return dedupSorted(deps), nil
}

// extractImport handles "import A", "import A as X", and "import A.B.C",
// all of which emit the full dotted target.
func (e *Extractor) extractImport(stmt pyast.ImportStmt, deps *[]string) {
	for _, name := range stmt.Names {
		if name.IsWildcard || name.Path == "" {
			continue
		}
		*deps = append(*deps, name.Path)
	}
}

// extractImportFrom handles "from P import n1, n2 as a2" and its relative
// forms. It always emits the resolved base module P (when non-empty), and
// additionally emits P.n for every imported name n whose dotted join
// resolves to a discovered first-party module -- the name may itself be a
// submodule rather than a plain attribute.
func (e *Extractor) extractImportFrom(currentModule string, stmt pyast.ImportStmt, deps *[]string) error {
	base := stmt.Module
	if stmt.Level > 0 {
		resolved, err := e.resolver.ResolveRelative(currentModule, stmt.Level, stmt.Module)
		if err != nil {
			return err
		}
		base = resolved
	}

	if base != "" {
		*deps = append(*deps, base)
	}

	for _, name := range stmt.Names {
		if name.IsWildcard || name.Path == "" {
			continue
		}
		candidate := name.Path
		if base != "" {
			candidate = base + "." + name.Path
		}
		if _, ok := e.resolver.ResolvePath(candidate); ok {
			*deps = append(*deps, candidate)
		}
	}

	return nil
}

func dedupSorted(deps []string) []string {
	seen := make(map[string]struct{}, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
