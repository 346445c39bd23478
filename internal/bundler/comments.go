package bundler

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcemelt/sourcemelt/internal/pyast"
)

// stripComments removes every comment token from the assembled bundle, for
// the preserve_comments: false configuration, except a leading "#!" shebang
// line, which stays at the top of the output. It reparses the final text
// rather than tracking comment spans through the per-module rewrite passes,
// since by this point there is only one tree to walk instead of one per
// module.
func stripComments(source []byte) ([]byte, error) {
	p, err := pyast.NewParser()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	m, err := p.Parse("<bundle>", source)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	var edits []pyast.Edit
	pyast.Walk(m.Root(), func(n *tree_sitter.Node) {
		isShebang := n.StartByte() == 0 && len(source) > 1 && source[0] == '#' && source[1] == '!'
		if n.Kind() == "comment" && !isShebang {
			edits = append(edits, commentEdit(n, source))
		}
	})
	if len(edits) == 0 {
		return source, nil
	}

	return pyast.ApplyEdits(source, edits)
}

// commentEdit removes one comment token. A comment that shares its line with
// preceding code only loses the "  # ..." tail, keeping the line's own
// newline intact; a comment alone on its line is removed together with the
// newline and any leading indentation, so stripping comments never leaves a
// blank line behind.
func commentEdit(n *tree_sitter.Node, source []byte) pyast.Edit {
	start := n.StartByte()
	lineStart := start
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	onOwnLine := true
	for i := lineStart; i < start; i++ {
		if source[i] != ' ' && source[i] != '\t' {
			onOwnLine = false
			break
		}
	}

	end := n.EndByte()
	if !onOwnLine {
		for start > lineStart && (source[start-1] == ' ' || source[start-1] == '\t') {
			start--
		}
		return pyast.Edit{Start: start, End: end, Replacement: ""}
	}

	if end < uint(len(source)) && source[end] == '\n' {
		end++
	}
	return pyast.Edit{Start: lineStart, End: end, Replacement: ""}
}
