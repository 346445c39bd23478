// Package diagnostics renders bundler outcomes to the terminal: colorized
// error-kind labels on failure, a humanized summary line on success.
package diagnostics

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sourcemelt/sourcemelt/internal/bundler"
)

var (
	kindColor    = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
)

// PrintError writes a fatal bundler error to w, coloring the taxonomy kind
// unless fatih/color has color turned off; that library decides once, from
// NO_COLOR and whether standard output is a terminal, not from w itself.
func PrintError(w io.Writer, err error) {
	berr, ok := err.(*bundler.Error)
	if !ok {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	kindColor.Fprintf(w, "%s", berr.Kind.String())
	fmt.Fprintf(w, ": %s", berr.Message)
	switch {
	case berr.Module != "" && berr.Location != "":
		fmt.Fprintf(w, " (%s, %s)", berr.Module, berr.Location)
	case berr.Module != "":
		fmt.Fprintf(w, " (%s)", berr.Module)
	}
	fmt.Fprintln(w)
}

// PrintSummary writes the post-bundle success line: module count and output
// size, humanized the way the rest of the toolchain renders byte counts.
func PrintSummary(w io.Writer, moduleCount int, outputBytes int) {
	successColor.Fprintf(w, "bundled %d module%s into %s\n",
		moduleCount, plural(moduleCount), humanize.Bytes(uint64(outputBytes)))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
