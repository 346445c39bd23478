// Package bundler orchestrates discovery, parsing, analysis, and emission
// into the single blocking bundle(entry, output) operation the rest of the
// toolchain calls.
package bundler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sourcemelt/sourcemelt/internal/config"
	"github.com/sourcemelt/sourcemelt/internal/extractor"
	"github.com/sourcemelt/sourcemelt/internal/graph"
	"github.com/sourcemelt/sourcemelt/internal/pyast"
	"github.com/sourcemelt/sourcemelt/internal/resolver"
	"github.com/sourcemelt/sourcemelt/internal/stdlib"
	"github.com/sourcemelt/sourcemelt/internal/unused"
	"github.com/sourcemelt/sourcemelt/pkg/types"
)

// ProgressFunc is a callback for orchestrator stage updates, mirroring the
// shape the rest of the toolchain's CLI layer already uses for long-running
// operations.
type ProgressFunc func(stage, detail string)

// Options configures one Bundle call beyond what BundleConfig carries.
type Options struct {
	OnProgress ProgressFunc
}

// Result is everything a successful bundle produces.
type Result struct {
	Output            []byte
	ThirdPartyModules []string
	Cycles            graph.CycleReport
	ModuleCount       int
}

// Bundle runs the full discover -> parse -> analyze -> rewrite -> emit
// pipeline for a single entry script and returns the assembled source text.
func Bundle(entryPath string, cfg *config.BundleConfig, opts Options) (*Result, error) {
	progress := opts.OnProgress
	if progress == nil {
		progress = func(string, string) {}
	}

	entryAbs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, &Error{Kind: EntryMissing, Message: err.Error()}
	}
	if info, err := os.Stat(entryAbs); err != nil || info.IsDir() {
		return nil, &Error{Kind: EntryMissing, Message: fmt.Sprintf("entry script not found: %s", entryPath)}
	}

	oracle := stdlib.New()
	r := resolver.New(cfg.Src, cfg.KnownFirstParty, cfg.KnownThirdParty, oracle, cfg.TargetVersion)

	progress("discovering", "scanning source roots")
	if err := r.Discover(); err != nil {
		return nil, &Error{Kind: IOError, Message: err.Error()}
	}
	entryRecord := r.EntryModule(entryAbs)

	parser, err := pyast.NewParser()
	if err != nil {
		return nil, &Error{Kind: IOError, Message: err.Error()}
	}
	defer parser.Close()

	ext := extractor.New(r)

	progress("parsing", "parsing first-party modules")
	g := graph.New()
	g.AddNode(entryRecord.Name)

	parsed := map[string]*pyast.Module{}
	defer func() {
		for _, m := range parsed {
			m.Close()
		}
	}()

	discardedNonFirstParty := make(map[string]struct{})
	pending := map[string]struct{}{entryRecord.Name: {}}
	frontier := []string{entryRecord.Name}

	for len(frontier) > 0 {
		batch := make([]string, 0, len(frontier))
		for _, name := range frontier {
			if _, ok := parsed[name]; !ok {
				batch = append(batch, name)
			}
		}

		if len(batch) > 0 {
			var mu sync.Mutex
			eg := new(errgroup.Group)
			for _, name := range batch {
				name := name
				eg.Go(func() error {
					rec, ok := r.Record(name)
					if !ok {
						return &Error{Kind: ResolutionError, Module: name, Message: "no source file for first-party module"}
					}
					content, err := os.ReadFile(rec.Path)
					if err != nil {
						return &Error{Kind: IOError, Module: name, Message: err.Error()}
					}
					m, err := parser.Parse(rec.Path, content)
					if err != nil {
						return &Error{Kind: ParseError, Module: name, Message: err.Error()}
					}
					mu.Lock()
					parsed[name] = m
					mu.Unlock()
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return nil, err
			}
		}

		var next []string
		for _, name := range frontier {
			m, ok := parsed[name]
			if !ok {
				continue
			}
			deps, err := ext.Extract(name, m)
			if err != nil {
				return nil, &Error{Kind: ResolutionError, Module: name, Message: err.Error()}
			}
			for _, dep := range deps {
				if r.Classify(dep) != types.FirstParty {
					discardedNonFirstParty[dep] = struct{}{}
					continue
				}
				g.AddEdge(name, dep)
				if _, seen := pending[dep]; !seen {
					pending[dep] = struct{}{}
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}

	order, cycles := g.TopoOrder()

	progress("analyzing", "trimming unused imports")
	headers := newHeaderCollector()
	bindingOwner := make(map[string]string)
	bodies := make(map[string][]byte, len(order))
	var shebang, docstring string

	rewriteOpts := unused.Options{ScanAnnotationStrings: cfg.PreserveTypeHints}

	for _, name := range order {
		m, ok := parsed[name]
		if !ok {
			return nil, &Error{Kind: ResolutionError, Module: name, Message: "module reached by the graph was never parsed"}
		}
		isEntry := name == entryRecord.Name

		result, err := rewriteModule(parser, name, m, r, rewriteOpts, headers, isEntry)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]struct{}, len(result.Bindings))
		for _, binding := range result.Bindings {
			if _, dup := seen[binding]; dup {
				continue
			}
			seen[binding] = struct{}{}

			if owner, collides := bindingOwner[binding]; collides && owner != name {
				return nil, &Error{
					Kind:    NameCollision,
					Module:  name,
					Message: fmt.Sprintf("top-level name %q is also defined by %s", binding, owner),
				}
			}
			bindingOwner[binding] = name
		}

		bodies[name] = result.Body
		if isEntry {
			shebang = result.Shebang
			docstring = result.Docstring
		}
	}

	progress("emitting", "assembling bundle")
	output := assemble(shebang, docstring, headers, order, bodies)

	if !cfg.PreserveComments {
		stripped, err := stripComments(output)
		if err != nil {
			return nil, &Error{Kind: ParseError, Message: "strip comments: " + err.Error()}
		}
		output = stripped
	}

	var thirdParty []string
	for dep := range discardedNonFirstParty {
		if r.Classify(dep) == types.ThirdParty {
			thirdParty = append(thirdParty, leftmostSegment(dep))
		}
	}
	thirdParty = dedupSortedStrings(thirdParty)

	return &Result{
		Output:            output,
		ThirdPartyModules: thirdParty,
		Cycles:            cycles,
		ModuleCount:       len(order),
	}, nil
}

// assemble concatenates the bundle's fixed sections in the output order the
// external interface specifies: shebang, docstring, future header, stdlib
// header, third-party header, then each module body in topological order
// separated by a single blank line.
func assemble(shebang, docstring string, headers *headerCollector, order []string, bodies map[string][]byte) []byte {
	var out bytes.Buffer

	if shebang != "" {
		out.WriteString(shebang)
	}
	if docstring != "" {
		out.WriteString(docstring)
		out.WriteString("\n")
	}

	if len(headers.future) > 0 {
		features := make([]string, 0, len(headers.future))
		for f := range headers.future {
			features = append(features, f)
		}
		sort.Strings(features)
		out.WriteString("from __future__ import ")
		out.WriteString(strings.Join(features, ", "))
		out.WriteString("\n")
	}

	writeSortedBlock(&out, headers.stdlib)
	writeSortedBlock(&out, headers.thirdParty)

	for i, name := range order {
		body := bytes.TrimRight(bodies[name], "\n")
		if len(body) == 0 {
			continue
		}
		if i > 0 || out.Len() > 0 {
			out.WriteString("\n")
		}
		out.Write(body)
		out.WriteString("\n")
	}

	return out.Bytes()
}

func writeSortedBlock(out *bytes.Buffer, lines map[string]struct{}) {
	if len(lines) == 0 {
		return
	}
	sorted := make([]string, 0, len(lines))
	for l := range lines {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)
	for _, l := range sorted {
		out.WriteString(l)
		out.WriteString("\n")
	}
}

func dedupSortedStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
