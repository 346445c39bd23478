// Package resolver discovers first-party Python modules under a set of
// source roots and classifies import targets as first-party, third-party,
// or standard library.
package resolver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/sourcemelt/sourcemelt/internal/stdlib"
	"github.com/sourcemelt/sourcemelt/pkg/types"
)

// EnvPathVar is the environment variable consulted during discovery for
// additional source roots, colon-separated on Unix and semicolon-separated
// on Windows (os.PathListSeparator handles both).
const EnvPathVar = "SOURCEMELT_PATH"

// Resolver discovers first-party modules and classifies import targets. Its
// module cache is mutated during Discover and read-only afterward: callers
// must not call Discover concurrently with Classify/ResolvePath.
type Resolver struct {
	roots           []string
	knownFirstParty map[string]struct{}
	knownThirdParty map[string]struct{}
	oracle          *stdlib.Oracle
	target          types.TargetVersion

	modules map[string]types.ModuleRecord
}

// New builds a Resolver over the given source roots. oracle is shared
// process-wide and must outlive the Resolver.
func New(roots []string, knownFirstParty, knownThirdParty []string, oracle *stdlib.Oracle, target types.TargetVersion) *Resolver {
	return &Resolver{
		roots:           roots,
		knownFirstParty: toSet(knownFirstParty),
		knownThirdParty: toSet(knownThirdParty),
		oracle:          oracle,
		target:          target,
		modules:         make(map[string]types.ModuleRecord),
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Discover walks every configured source root plus any roots found in
// EnvPathVar, enumerating .py files and synthesizing module records.
// Non-existent roots are silently skipped; symlinks are never followed.
// The resulting module set is independent of filesystem iteration order:
// Discover sorts discovered entries before indexing them, and any caller
// iterating r.modules must go through a sorted view (see Modules).
func (r *Resolver) Discover() error {
	allRoots := append([]string{}, r.roots...)
	if envPath := os.Getenv(EnvPathVar); envPath != "" {
		for _, p := range strings.Split(envPath, string(os.PathListSeparator)) {
			if p != "" {
				allRoots = append(allRoots, p)
			}
		}
	}

	var discovered []types.ModuleRecord
	for _, root := range allRoots {
		info, err := os.Lstat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		found, err := walkRoot(abs)
		if err != nil {
			return fmt.Errorf("discover %s: %w", root, err)
		}
		discovered = append(discovered, found...)
	}

	sort.Slice(discovered, func(i, j int) bool { return discovered[i].Name < discovered[j].Name })

	for _, rec := range discovered {
		r.modules[rec.Name] = rec
	}

	return nil
}

// walkRoot enumerates every first-party module under a single absolute root
// directory. It never follows symlinks and honors a .gitignore at the root
// if present, matching the discovery conventions used elsewhere in the
// toolchain.
func walkRoot(root string) ([]types.ModuleRecord, error) {
	var gitIgnore *ignore.GitIgnore
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		gi, err := ignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			return nil, fmt.Errorf("parse .gitignore: %w", err)
		}
		gitIgnore = gi
	}

	var out []types.ModuleRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			if name == "__pycache__" || name == "node_modules" {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(name) != ".py" {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			return nil
		}

		modName, isPackage := moduleName(root, relPath)
		if modName == "" {
			return nil
		}
		out = append(out, types.ModuleRecord{
			Name:       modName,
			Path:       path,
			IsPackage:  isPackage,
			SourceRoot: root,
		})
		return nil
	})
	return out, err
}

// moduleName derives a module identifier from a path relative to its source
// root: strip the .py suffix, join components with '.', and collapse a
// trailing package-initializer segment to its parent -- except when the
// initializer sits at the root, in which case the name is the root
// directory's own base name.
func moduleName(root, relPath string) (name string, isPackage bool) {
	relPath = filepath.ToSlash(relPath)
	trimmed := strings.TrimSuffix(relPath, ".py")
	parts := strings.Split(trimmed, "/")

	base := parts[len(parts)-1]
	if base == "__init__" {
		isPackage = true
		parts = parts[:len(parts)-1]
		if len(parts) == 0 {
			return filepath.Base(filepath.Clean(root)), true
		}
		return strings.Join(parts, "."), true
	}

	return strings.Join(parts, "."), false
}

// Classify applies the resolver's classification rules, in order: a name
// forced first-party by configuration; a relative name (already resolved by
// the caller, but handled defensively); a name whose leftmost segment is in
// the known-third-party set; a stdlib oracle hit; a name or ancestor that is
// a discovered first-party module; otherwise third-party.
func (r *Resolver) Classify(name string) types.ImportClass {
	leftmost := leftmostSegment(name)

	if _, ok := r.knownFirstParty[leftmost]; ok {
		return types.FirstParty
	}
	if strings.HasPrefix(name, ".") {
		return types.FirstParty
	}
	if _, ok := r.knownThirdParty[leftmost]; ok {
		return types.ThirdParty
	}
	if r.oracle.IsStdlib(name, r.target) {
		return types.StdLib
	}
	if r.isFirstPartyOrAncestor(name) {
		return types.FirstParty
	}
	return types.ThirdParty
}

func (r *Resolver) isFirstPartyOrAncestor(name string) bool {
	for {
		if _, ok := r.modules[name]; ok {
			return true
		}
		idx := strings.LastIndex(name, ".")
		if idx < 0 {
			return false
		}
		name = name[:idx]
	}
}

func leftmostSegment(name string) string {
	name = strings.TrimLeft(name, ".")
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}

// ResolvePath returns the file path for a first-party module name, caching
// against the module set built by Discover. Only defined for first-party
// names.
func (r *Resolver) ResolvePath(name string) (string, bool) {
	rec, ok := r.modules[name]
	if !ok {
		return "", false
	}
	return rec.Path, true
}

// Record returns the full module record for a discovered first-party name.
func (r *Resolver) Record(name string) (types.ModuleRecord, bool) {
	rec, ok := r.modules[name]
	return rec, ok
}

// Modules returns every discovered first-party module record, sorted by
// name for deterministic iteration.
func (r *Resolver) Modules() []types.ModuleRecord {
	out := make([]types.ModuleRecord, 0, len(r.modules))
	for _, rec := range r.modules {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EntryModule returns the module record for an entry script given its
// absolute path, registering one if discovery did not already find it
// (e.g. an entry point that lives outside every configured source root).
// A synthesized record's name is its file base name with the .py suffix
// stripped and its source root is the file's own containing directory.
// Registering the entry does not walk that directory: a sibling module
// there is first-party only if a configured source root already covers it.
func (r *Resolver) EntryModule(absPath string) types.ModuleRecord {
	for _, rec := range r.modules {
		if rec.Path == absPath {
			return rec
		}
	}

	dir := filepath.Dir(absPath)
	name, isPackage := moduleName(dir, filepath.Base(absPath))
	rec := types.ModuleRecord{Name: name, Path: absPath, IsPackage: isPackage, SourceRoot: dir}
	r.modules[name] = rec
	return rec
}

// ResolveRelative subtracts level components from current_module's package
// and appends tail, following the same rule CPython's import system uses to
// compute relative-import targets. It fails when level exceeds the
// importing module's package depth.
func (r *Resolver) ResolveRelative(currentModule string, level int, tail string) (string, error) {
	if level < 1 {
		return "", fmt.Errorf("resolve relative import: level must be >= 1, got %d", level)
	}

	pkg := currentModule
	if rec, ok := r.modules[currentModule]; !ok || !rec.IsPackage {
		if idx := strings.LastIndex(currentModule, "."); idx >= 0 {
			pkg = currentModule[:idx]
		} else {
			pkg = ""
		}
	}

	var parts []string
	if pkg != "" {
		parts = strings.Split(pkg, ".")
	}

	drop := level - 1
	if drop > len(parts) {
		return "", fmt.Errorf("attempted relative import beyond top-level package: %s level=%d", currentModule, level)
	}

	base := strings.Join(parts[:len(parts)-drop], ".")

	switch {
	case base == "" && tail == "":
		return "", fmt.Errorf("relative import resolves to an empty module identifier: %s level=%d", currentModule, level)
	case base == "":
		return tail, nil
	case tail == "":
		return base, nil
	default:
		return base + "." + tail, nil
	}
}
