package bundler

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// topLevelBindings returns the names a module's own (non-import) top-level
// statements introduce into the shared global namespace once inlined:
// function and class definitions (looking through decorators) and simple
// "name = ..." assignments. This is a best-effort scan, not a full binder --
// tuple/starred-unpacking targets and control-flow-scoped bindings are
// skipped, matching the documented precondition that first-party top-level
// namespaces don't collide rather than attempting to catch every possible
// binding form.
func topLevelBindings(root *tree_sitter.Node, source []byte) []string {
	var names []string
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt == nil {
			continue
		}
		names = append(names, bindingsOf(stmt, source)...)
	}
	return names
}

func bindingsOf(stmt *tree_sitter.Node, source []byte) []string {
	switch stmt.Kind() {
	case "decorated_definition":
		if def := stmt.ChildByFieldName("definition"); def != nil {
			return bindingsOf(def, source)
		}
		return nil
	case "function_definition", "class_definition":
		if name := stmt.ChildByFieldName("name"); name != nil {
			return []string{text(name, source)}
		}
		return nil
	case "expression_statement":
		if stmt.ChildCount() == 0 {
			return nil
		}
		return bindingsOf(stmt.Child(0), source)
	case "assignment":
		left := stmt.ChildByFieldName("left")
		if left != nil && left.Kind() == "identifier" {
			return []string{text(left, source)}
		}
		return nil
	default:
		return nil
	}
}

func text(node *tree_sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
