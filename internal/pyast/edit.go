package pyast

import (
	"fmt"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Edit replaces the byte range [Start, End) of a module's source with
// Replacement. This is the whole of the "unparse" half of the oracle: apply
// edits by byte-splicing the original source rather than re-printing an AST,
// so every span outside an edit survives byte-for-byte (comments, spacing,
// string quoting styles, all of it).
type Edit struct {
	Start       uint
	End         uint
	Replacement string
}

// EditRange builds an Edit that replaces the full span of node.
func EditRange(node *tree_sitter.Node, replacement string) Edit {
	return Edit{Start: node.StartByte(), End: node.EndByte(), Replacement: replacement}
}

// ApplyEdits splices a set of non-overlapping edits into source: it sorts
// them by Start and copies source forward, substituting each edit's
// Replacement for its byte range, so every offset refers to the original.
// Overlapping edits are a programmer error and return an error rather than
// producing corrupt output.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return nil, fmt.Errorf("overlapping edits at byte %d and [%d,%d)", sorted[i].Start, sorted[i-1].Start, sorted[i-1].End)
		}
	}

	out := make([]byte, 0, len(source))
	cursor := uint(0)
	for _, e := range sorted {
		if e.Start < cursor || e.End > uint(len(source)) {
			return nil, fmt.Errorf("edit [%d,%d) out of bounds for %d-byte source", e.Start, e.End, len(source))
		}
		out = append(out, source[cursor:e.Start]...)
		out = append(out, e.Replacement...)
		cursor = e.End
	}
	out = append(out, source[cursor:]...)
	return out, nil
}
