// Package unused implements per-module unused-import analysis: it both
// informs the bundler's emitter and is exposed standalone for trimming.
package unused

import (
	"regexp"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcemelt/sourcemelt/internal/pyast"
)

// Record describes one import binding with no reachable use.
type Record struct {
	BindingName string
	Source      string // fully qualified origin, e.g. "os.path" or "utils.helper"
	IsFrom      bool
	Line        int // 1-indexed
	Stmt        pyast.ImportStmt
	Name        pyast.ImportedName
}

// Options configures the preservation filters applied on top of plain
// reachability.
type Options struct {
	// Preserve is a caller-supplied exact-name list: a bound name in this
	// set is never reported as unused regardless of reachability.
	Preserve []string
	// ScanAnnotationStrings, when true, treats identifier tokens inside a
	// parameter/return type annotation written as a string literal (a PEP
	// 484 forward reference) as uses. Corresponds to the preserve-type-hints
	// configuration knob: turning it off lets a name used only inside a
	// forward-reference annotation be trimmed.
	ScanAnnotationStrings bool
}

// Analyze walks root's top-level import statements and the full module body
// to find bindings with no reachable use, applying the fixed preservation
// filters (always-on: __future__ imports, names re-exported via a
// module-level __all__) plus opts.
func Analyze(root *tree_sitter.Node, source []byte, opts Options) []Record {
	preserve := toSet(opts.Preserve)
	exported := collectAllNames(root, source)
	refs := collectReferences(root, source, opts.ScanAnnotationStrings)

	var records []Record
	for _, stmt := range pyast.TopLevelImports(root, source) {
		if stmt.IsFrom && stmt.Level == 0 && stmt.Module == "__future__" {
			continue
		}
		for _, name := range stmt.Names {
			if name.IsWildcard {
				continue
			}
			bound := name.BoundName()
			if _, ok := preserve[bound]; ok {
				continue
			}
			if _, ok := exported[bound]; ok {
				continue
			}
			if _, ok := refs[bound]; ok {
				continue
			}

			records = append(records, Record{
				BindingName: bound,
				Source:      qualifiedSource(stmt, name),
				IsFrom:      stmt.IsFrom,
				Line:        int(name.Node.StartPosition().Row) + 1,
				Stmt:        stmt,
				Name:        name,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Line != records[j].Line {
			return records[i].Line < records[j].Line
		}
		return records[i].BindingName < records[j].BindingName
	})
	return records
}

// Trim removes or rewrites unused import statements, returning the new
// source. A statement whose every binding is unused is removed along with
// its own trailing newline; a statement with mixed usage is rewritten to
// keep only the used names, preserving the statement's own "import" /
// "from ... import" form and dot-level.
func Trim(root *tree_sitter.Node, source []byte, opts Options) ([]byte, []Record, error) {
	unused := Analyze(root, source, opts)
	if len(unused) == 0 {
		return source, nil, nil
	}

	unusedByStmt := make(map[*tree_sitter.Node][]pyast.ImportedName)
	for _, rec := range unused {
		unusedByStmt[rec.Stmt.Node] = append(unusedByStmt[rec.Stmt.Node], rec.Name)
	}

	var edits []pyast.Edit
	for stmtNode, removedNames := range unusedByStmt {
		stmt := findStmt(root, source, stmtNode)
		edits = append(edits, rewriteStatement(stmt, removedNames, source))
	}

	out, err := pyast.ApplyEdits(source, edits)
	if err != nil {
		return nil, nil, err
	}
	return out, unused, nil
}

func findStmt(root *tree_sitter.Node, source []byte, node *tree_sitter.Node) pyast.ImportStmt {
	for _, stmt := range pyast.TopLevelImports(root, source) {
		if stmt.Node == node {
			return stmt
		}
	}
	return pyast.ImportStmt{Node: node}
}

// rewriteStatement builds the Edit for one import statement given the set
// of its bindings found unused. If every binding is unused the whole
// statement (and its line) is removed; otherwise it is rewritten keeping
// only the surviving names, joined with ", " to match common formatting.
func rewriteStatement(stmt pyast.ImportStmt, removed []pyast.ImportedName, source []byte) pyast.Edit {
	removedSet := make(map[*tree_sitter.Node]struct{}, len(removed))
	for _, n := range removed {
		removedSet[n.Node] = struct{}{}
	}

	var kept []pyast.ImportedName
	for _, n := range stmt.Names {
		if _, gone := removedSet[n.Node]; !gone {
			kept = append(kept, n)
		}
	}

	if len(kept) == 0 {
		return removeFullLine(stmt.Node, source)
	}

	var b strings.Builder
	if stmt.IsFrom {
		b.WriteString("from ")
		b.WriteString(strings.Repeat(".", stmt.Level))
		b.WriteString(stmt.Module)
		b.WriteString(" import ")
	} else {
		b.WriteString("import ")
	}
	for i, n := range kept {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n.Path)
		if n.Alias != "" {
			b.WriteString(" as ")
			b.WriteString(n.Alias)
		}
	}

	return pyast.EditRange(stmt.Node, b.String())
}

// removeFullLine builds an Edit erasing node's span extended through any
// trailing inline comment and the line's own newline, so removing a
// statement entirely does not orphan a comment that was attached to it.
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

func qualifiedSource(stmt pyast.ImportStmt, name pyast.ImportedName) string {
	if !stmt.IsFrom {
		return name.Path
	}
	module := stmt.Module
	if stmt.Level > 0 {
		module = strings.Repeat(".", stmt.Level) + stmt.Module
	}
	if module == "" {
		return name.Path
	}
	return module + "." + name.Path
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// collectReferences walks the whole module, skipping any import statement
// subtree (so an import never "uses" its own name), and gathers every
// identifier text -- which, since an attribute's object child is itself an
// identifier node, also covers attribute-root loads -- plus, when
// scanAnnotationStrings is set, identifier-like tokens pulled out of string
// literals used as forward-reference annotations.
func collectReferences(root *tree_sitter.Node, source []byte, scanAnnotationStrings bool) map[string]struct{} {
	refs := make(map[string]struct{})
	var walk func(node *tree_sitter.Node)
	walk = func(node *tree_sitter.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "import_statement", "import_from_statement":
			return
		case "identifier":
			refs[string(source[node.StartByte():node.EndByte()])] = struct{}{}
		case "string":
			if scanAnnotationStrings && isAnnotationString(node) {
				for _, tok := range identifierTokens(unquote(string(source[node.StartByte():node.EndByte()]))) {
					refs[tok] = struct{}{}
				}
			}
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)
	return refs
}

// isAnnotationString reports whether node is the "type" field of a
// parameter or annotated assignment, or the "return_type" field of a
// function definition -- the positions where a string literal is commonly
// used as a PEP 484 forward reference.
func isAnnotationString(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	// The grammar wraps an annotation in a "type" node; the field naming
	// the annotation sits on that wrapper's parent.
	if parent.Kind() == "type" {
		node = parent
		parent = node.Parent()
		if parent == nil {
			return false
		}
	}
	if t := parent.ChildByFieldName("type"); t != nil && sameNode(t, node) {
		return true
	}
	if t := parent.ChildByFieldName("return_type"); t != nil && sameNode(t, node) {
		return true
	}
	return false
}

func sameNode(a, b *tree_sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

var identifierTokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func identifierTokens(s string) []string {
	return identifierTokenPattern.FindAllString(s, -1)
}

// unquote strips a Python string literal's prefix (r, b, f, u, any case or
// combination) and surrounding quotes (single, double, or triple).
func unquote(s string) string {
	i := 0
	for i < len(s) && isStringPrefixRune(s[i]) {
		i++
	}
	s = s[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

func isStringPrefixRune(b byte) bool {
	switch b {
	case 'r', 'R', 'b', 'B', 'f', 'F', 'u', 'U':
		return true
	default:
		return false
	}
}

// collectAllNames returns the set of string-literal entries inside a
// module-level "__all__ = [...]" or "__all__ = (...)" assignment -- the
// preserve-re-exported filter.
func collectAllNames(root *tree_sitter.Node, source []byte) map[string]struct{} {
	out := make(map[string]struct{})
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		assignment := stmt
		if stmt.Kind() == "expression_statement" && stmt.ChildCount() > 0 {
			assignment = stmt.Child(0)
		}
		if assignment.Kind() != "assignment" {
			continue
		}
		left := assignment.ChildByFieldName("left")
		if left == nil || left.Kind() != "identifier" {
			continue
		}
		if string(source[left.StartByte():left.EndByte()]) != "__all__" {
			continue
		}
		right := assignment.ChildByFieldName("right")
		if right == nil {
			continue
		}
		for j := uint(0); j < right.ChildCount(); j++ {
			elem := right.Child(j)
			if elem.Kind() == "string" {
				out[unquote(string(source[elem.StartByte():elem.EndByte()]))] = struct{}{}
			}
		}
	}
	return out
}
