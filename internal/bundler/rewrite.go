package bundler

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcemelt/sourcemelt/internal/pyast"
	"github.com/sourcemelt/sourcemelt/internal/resolver"
	"github.com/sourcemelt/sourcemelt/internal/unused"
	"github.com/sourcemelt/sourcemelt/pkg/types"
)

// headerCollector accumulates the statements every module contributes to
// the bundle's shared headers: one deduplicated, sorted future-import line,
// and deduplicated stdlib/third-party import blocks.
type headerCollector struct {
	future     map[string]struct{}
	stdlib     map[string]struct{}
	thirdParty map[string]struct{}
}

func newHeaderCollector() *headerCollector {
	return &headerCollector{
		future:     make(map[string]struct{}),
		stdlib:     make(map[string]struct{}),
		thirdParty: make(map[string]struct{}),
	}
}

// rewriteResult is one module's contribution to the bundle plan after step
// (b)-(e) of the orchestrator algorithm have run against it.
type rewriteResult struct {
	Body      []byte
	Bindings  []string
	Shebang   string
	Docstring string
}

// rewriteModule trims unused imports, then rewrites every remaining
// top-level import statement: first-party targets become assignments (or
// vanish, when the bound name already matches), stdlib/third-party targets
// are hoisted into headers and stripped from the body. When isEntry is set,
// a leading shebang and/or module docstring are extracted for placement at
// the very top of the final bundle rather than left in the inlined body.
func rewriteModule(p *pyast.Parser, currentModule string, m *pyast.Module, r *resolver.Resolver, opts unused.Options, headers *headerCollector, isEntry bool) (rewriteResult, error) {
	trimmed, _, err := unused.Trim(m.Root(), m.Source, opts)
	if err != nil {
		return rewriteResult{}, &Error{Kind: ParseError, Module: currentModule, Message: "trim unused imports: " + err.Error()}
	}

	m2, err := p.Parse(currentModule, trimmed)
	if err != nil {
		return rewriteResult{}, &Error{Kind: ParseError, Module: currentModule, Message: err.Error()}
	}
	defer m2.Close()
	root2 := m2.Root()

	var edits []pyast.Edit
	var shebang, docstring string

	if isEntry {
		if strings.HasPrefix(string(trimmed), "#!") {
			if idx := strings.IndexByte(string(trimmed), '\n'); idx >= 0 {
				shebang = string(trimmed[:idx+1])
				edits = append(edits, pyast.Edit{Start: 0, End: uint(idx + 1), Replacement: ""})
			}
		}
		if doc, node, ok := leadingDocstring(root2, trimmed); ok {
			docstring = doc
			edits = append(edits, removeFullLine(node, trimmed))
		}
	}

	for _, stmt := range pyast.TopLevelImports(root2, trimmed) {
		if stmt.IsFrom && stmt.Level == 0 && stmt.Module == "__future__" {
			for _, n := range stmt.Names {
				headers.future[n.Path] = struct{}{}
			}
			edits = append(edits, removeFullLine(stmt.Node, trimmed))
			continue
		}

		if stmt.IsFrom {
			edit, err := rewriteFromImport(currentModule, stmt, r, headers, trimmed)
			if err != nil {
				return rewriteResult{}, err
			}
			edits = append(edits, edit)
			continue
		}

		edits = append(edits, rewritePlainImport(stmt, r, headers, trimmed))
	}

	out, err := pyast.ApplyEdits(trimmed, edits)
	if err != nil {
		return rewriteResult{}, &Error{Kind: ParseError, Module: currentModule, Message: err.Error()}
	}

	return rewriteResult{
		Body:      out,
		Bindings:  topLevelBindings(root2, trimmed),
		Shebang:   shebang,
		Docstring: docstring,
	}, nil
}

// leadingDocstring reports the module's docstring statement, if its first
// non-comment top-level child is a bare string expression.
func leadingDocstring(root *tree_sitter.Node, source []byte) (string, *tree_sitter.Node, bool) {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		if child.Kind() != "expression_statement" || child.ChildCount() == 0 {
			return "", nil, false
		}
		if child.Child(0).Kind() != "string" {
			return "", nil, false
		}
		return text(child, source), child, true
	}
	return "", nil, false
}

// rewriteFromImport handles one "from F import ..." statement, uniformly
// for the whole statement since every name in it shares the same base F.
func rewriteFromImport(currentModule string, stmt pyast.ImportStmt, r *resolver.Resolver, headers *headerCollector, source []byte) (pyast.Edit, error) {
	base := stmt.Module
	if stmt.Level > 0 {
		resolved, err := r.ResolveRelative(currentModule, stmt.Level, stmt.Module)
		if err != nil {
			return pyast.Edit{}, &Error{Kind: ResolutionError, Module: currentModule, Message: err.Error()}
		}
		base = resolved
	}

	class := r.Classify(base)
	if class != types.FirstParty {
		line := renderFromImport(stmt)
		if class == types.StdLib {
			headers.stdlib[line] = struct{}{}
		} else {
			headers.thirdParty[line] = struct{}{}
		}
		return removeFullLine(stmt.Node, source), nil
	}

	var assignments []string
	for _, n := range stmt.Names {
		if n.IsWildcard {
			continue
		}
		bound := n.BoundName()
		if bound != n.Path {
			assignments = append(assignments, bound+" = "+n.Path)
		}
	}
	return replaceOrRemove(stmt.Node, source, strings.Join(assignments, "\n")), nil
}

// rewritePlainImport handles one "import A[, B as C]" statement. Unlike a
// from-import, each comma-separated name can resolve to a different
// classification, so every name is judged independently.
func rewritePlainImport(stmt pyast.ImportStmt, r *resolver.Resolver, headers *headerCollector, source []byte) pyast.Edit {
	var assignments []string
	for _, n := range stmt.Names {
		if n.IsWildcard {
			continue
		}
		switch r.Classify(n.Path) {
		case types.FirstParty:
			bound := n.BoundName()
			canonical := leftmostSegment(n.Path)
			if n.Alias != "" && bound != canonical {
				assignments = append(assignments, bound+" = "+canonical)
			}
		case types.StdLib:
			headers.stdlib[renderPlainImportName(n)] = struct{}{}
		default:
			headers.thirdParty[renderPlainImportName(n)] = struct{}{}
		}
	}
	return replaceOrRemove(stmt.Node, source, strings.Join(assignments, "\n"))
}

func renderFromImport(stmt pyast.ImportStmt) string {
	var b strings.Builder
	b.WriteString("from ")
	b.WriteString(strings.Repeat(".", stmt.Level))
	b.WriteString(stmt.Module)
	b.WriteString(" import ")
	for i, n := range stmt.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		if n.IsWildcard {
			b.WriteString("*")
			continue
		}
		b.WriteString(n.Path)
		if n.Alias != "" {
			b.WriteString(" as ")
			b.WriteString(n.Alias)
		}
	}
	return b.String()
}

func renderPlainImportName(n pyast.ImportedName) string {
	if n.Alias != "" {
		return "import " + n.Path + " as " + n.Alias
	}
	return "import " + n.Path
}

func replaceOrRemove(node *tree_sitter.Node, source []byte, replacement string) pyast.Edit {
	if replacement == "" {
		return removeFullLine(node, source)
	}
	return pyast.EditRange(node, replacement)
}

// removeFullLine mirrors the unused package's own full-statement removal:
// erase the statement plus any trailing inline comment and its newline, so
// hoisting or dropping an import never orphans a comment or leaves a blank
// line behind.
func removeFullLine(node *tree_sitter.Node, source []byte) pyast.Edit {
	end := node.EndByte()
	for end < uint(len(source)) && (source[end] == ' ' || source[end] == '\t') {
		end++
	}
	if end < uint(len(source)) && source[end] == '#' {
		for end < uint(len(source)) && source[end] != '\n' {
			end++
		}
	}
	if end < uint(len(source)) && source[end] == '\n' {
		end++
	}
	return pyast.Edit{Start: node.StartByte(), End: end, Replacement: ""}
}

func leftmostSegment(name string) string {
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}
