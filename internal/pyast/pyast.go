// Package pyast realizes an external parser/unparser oracle using
// tree-sitter-python: parsing yields a concrete syntax tree with byte-exact
// source spans, and "unparsing" is span-preserving source splicing rather
// than a from-scratch AST printer. Unchanged source is never re-serialized,
// so comments and formatting in untouched code survive byte-for-byte.
//
// Tree-sitter parsers require CGO_ENABLED=1. Every Tree returned by Parse
// must be closed by the caller to avoid leaking the underlying C memory.
package pyast

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser holds a pooled Tree-sitter Python parser. Tree-sitter parsers are
// not thread-safe, so all Parse calls are serialized via a mutex; the Trees
// they return are safe to read concurrently afterward.
type Parser struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
}

// NewParser creates a pooled Python parser.
func NewParser() (*Parser, error) {
	p := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_python.Language())
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, fmt.Errorf("set python language: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Close releases the underlying parser. Must be called when done.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// Module is a parsed Python source file: a Tree-sitter tree paired with the
// exact source bytes it was parsed from. Callers splice Edits against
// Source to realize the "unparse" half of the oracle contract.
type Module struct {
	Path   string
	Source []byte
	Tree   *tree_sitter.Tree
}

// Parse parses source content into a Module. The caller must call
// module.Close() when done.
func (p *Parser) Parse(path string, source []byte) (*Module, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: tree-sitter returned a nil parse tree", path)
	}
	if tree.RootNode().HasError() {
		// A syntactically invalid file still produces a tree (tree-sitter is
		// error-tolerant), but we surface it as a parse failure rather than
		// silently bundling garbage.
		tree.Close()
		return nil, fmt.Errorf("%s: syntax error", path)
	}

	return &Module{Path: path, Source: source, Tree: tree}, nil
}

// Close releases the module's underlying Tree-sitter tree.
func (m *Module) Close() {
	if m.Tree != nil {
		m.Tree.Close()
	}
}

// Root returns the module's root syntax node.
func (m *Module) Root() *tree_sitter.Node {
	return m.Tree.RootNode()
}

// Text returns the verbatim source text spanned by node.
func (m *Module) Text(node *tree_sitter.Node) string {
	return string(m.Source[node.StartByte():node.EndByte()])
}

// Walk performs a depth-first traversal of the tree rooted at node, calling
// fn for every node visited (including node itself).
func Walk(node *tree_sitter.Node, fn func(*tree_sitter.Node)) {
	if node == nil {
		return
	}
	fn(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			Walk(child, fn)
		}
	}
}
