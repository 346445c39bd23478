package pyast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ImportedName is one binding introduced by an import statement: a plain
// "import a.b.c", one entry of a comma-separated "from p import n1, n2",
// or a wildcard ("from p import *").
type ImportedName struct {
	// Path is the dotted name as written: "a.b.c" for "import a.b.c", or
	// "n1" for "from p import n1". Empty when IsWildcard.
	Path string
	// Alias is the "as X" binding, or "" if none.
	Alias string
	// IsWildcard is true for "from p import *".
	IsWildcard bool
	// Node is the dotted_name/aliased_import/wildcard_import node, for
	// precise splicing when only this one name is being trimmed.
	Node *tree_sitter.Node
}

// BoundName returns the identifier this entry binds into the importing
// module's namespace: the alias if present, otherwise the leftmost segment
// of Path (matching Python's own binding rule: "import a.b" binds "a").
func (n ImportedName) BoundName() string {
	if n.Alias != "" {
		return n.Alias
	}
	for i := 0; i < len(n.Path); i++ {
		if n.Path[i] == '.' {
			return n.Path[:i]
		}
	}
	return n.Path
}

// ImportStmt is a single top-level import statement, either "import ..." or
// "from ... import ...".
type ImportStmt struct {
	Node   *tree_sitter.Node
	IsFrom bool
	// Level is the relative-import dot count (0 for an absolute import).
	Level int
	// Module is the dotted module name after any leading dots, or "" for
	// "from . import x" / "from .. import x" with no trailing module.
	// Always "" for plain (non-from) imports -- see Names instead.
	Module string
	Names  []ImportedName
}

// TopLevelImports scans the direct children of root (the module node) for
// import_statement, import_from_statement and future_import_statement nodes
// (the last reported as a from-import of module "__future__"). source must be the
// bytes the tree containing root was parsed from. Only syntactically
// top-level imports are considered; the unused-import analyzer only acts on
// top-level bindings, and the extractor walks the full tree separately when
// it needs nested imports too.
func TopLevelImports(root *tree_sitter.Node, source []byte) []ImportStmt {
	var out []ImportStmt
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_statement":
			out = append(out, ParseImportStatement(child, source))
		case "import_from_statement":
			out = append(out, ParseImportFromStatement(child, source))
		case "future_import_statement":
			stmt := ParseImportFromStatement(child, source)
			stmt.Module = "__future__"
			out = append(out, stmt)
		}
	}
	return out
}

// ParseImportStatement parses a single import_statement node. Exported so
// callers walking the full tree (not just top-level statements) can parse
// import nodes found at any nesting depth.
func ParseImportStatement(node *tree_sitter.Node, source []byte) ImportStmt {
	stmt := ImportStmt{Node: node, IsFrom: false}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if name, ok := parseNameEntry(child, source); ok {
			stmt.Names = append(stmt.Names, name)
		}
	}
	return stmt
}

// ParseImportFromStatement parses a single import_from_statement node.
// Exported for the same reason as ParseImportStatement.
func ParseImportFromStatement(node *tree_sitter.Node, source []byte) ImportStmt {
	stmt := ImportStmt{Node: node, IsFrom: true}

	moduleField := node.ChildByFieldName("module_name")
	var moduleStart, moduleEnd uint
	if moduleField != nil {
		moduleStart, moduleEnd = moduleField.StartByte(), moduleField.EndByte()
		switch moduleField.Kind() {
		case "dotted_name":
			stmt.Level = 0
			stmt.Module = text(moduleField, source)
		case "relative_import":
			level, tail := parseRelativeImport(moduleField, source)
			stmt.Level = level
			stmt.Module = tail
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		// Skip the module_name field node itself -- it is not a bound name.
		if moduleField != nil && child.StartByte() == moduleStart && child.EndByte() == moduleEnd {
			continue
		}
		if child.Kind() == "wildcard_import" {
			stmt.Names = append(stmt.Names, ImportedName{IsWildcard: true, Node: child})
			continue
		}
		if name, ok := parseNameEntry(child, source); ok {
			stmt.Names = append(stmt.Names, name)
		}
	}

	return stmt
}

func parseNameEntry(node *tree_sitter.Node, source []byte) (ImportedName, bool) {
	switch node.Kind() {
	case "dotted_name":
		return ImportedName{Path: text(node, source), Node: node}, true
	case "aliased_import":
		nameNode := node.ChildByFieldName("name")
		aliasNode := node.ChildByFieldName("alias")
		entry := ImportedName{Node: node}
		if nameNode != nil {
			entry.Path = text(nameNode, source)
		}
		if aliasNode != nil {
			entry.Alias = text(aliasNode, source)
		}
		return entry, true
	default:
		return ImportedName{}, false
	}
}

func parseRelativeImport(node *tree_sitter.Node, source []byte) (level int, tail string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_prefix":
			level = len(text(child, source))
		case "dotted_name":
			tail = text(child, source)
		}
	}
	return level, tail
}

func text(node *tree_sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
