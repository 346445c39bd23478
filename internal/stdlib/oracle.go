// Package stdlib provides the constant classifier answering whether a module
// name belongs to a target CPython interpreter's standard library.
package stdlib

import (
	"strings"

	"github.com/sourcemelt/sourcemelt/pkg/types"
)

// Oracle holds, for each supported target version, the complete set of
// top-level standard library module names for that interpreter. It is
// populated once at construction and is immutable thereafter: lookups never
// allocate and are safe for concurrent use without synchronization.
type Oracle struct {
	sets map[types.TargetVersion]map[string]struct{}
}

// New builds an Oracle with the module sets for every supported target
// version (py38 through py313).
func New() *Oracle {
	base := baseModules()

	py38 := cloneSet(base)
	addAll(py38, pep594Modules) // present, not yet deprecated

	py39 := cloneSet(py38)
	addAll(py39, []string{"graphlib", "zoneinfo"})

	py310 := cloneSet(py39)
	delete(py310, "formatter") // removed in Python 3.10

	py311 := cloneSet(py310)
	addAll(py311, []string{"tomllib"})

	py312 := cloneSet(py311)
	delete(py312, "distutils") // removed by PEP 632
	delete(py312, "imp")       // removed in Python 3.12

	py313 := cloneSet(py312)
	removeAll(py313, pep594Modules) // removed by PEP 594
	delete(py313, "lib2to3")        // removed in Python 3.13

	return &Oracle{sets: map[types.TargetVersion]map[string]struct{}{
		types.Py38:  py38,
		types.Py39:  py39,
		types.Py310: py310,
		types.Py311: py311,
		types.Py312: py312,
		types.Py313: py313,
	}}
}

// IsStdlib reports whether name's leftmost dotted segment is a standard
// library module for the given target version. Unrecognized target versions
// and unrecognized names both return false.
func (o *Oracle) IsStdlib(name string, target types.TargetVersion) bool {
	if name == "" {
		return false
	}
	set, ok := o.sets[target]
	if !ok {
		return false
	}
	top := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		top = name[:i]
	}
	_, present := set[top]
	return present
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

func addAll(set map[string]struct{}, names []string) {
	for _, n := range names {
		set[n] = struct{}{}
	}
}

func removeAll(set map[string]struct{}, names []string) {
	for _, n := range names {
		delete(set, n)
	}
}

// pep594Modules lists the "dead battery" modules deprecated by PEP 594 in
// Python 3.11 and removed in Python 3.13.
var pep594Modules = []string{
	"aifc", "audioop", "cgi", "cgitb", "chunk", "crypt", "imghdr", "mailcap",
	"msilib", "nis", "nntplib", "ossaudiodev", "pipes", "sndhdr", "spwd",
	"sunau", "telnetlib", "uu", "xdrlib",
}

// baseModules returns the set of top-level standard library module names
// that every version's set starts from; New removes from later versions the
// modules those interpreters dropped (py38's own deprecated-but-present set
// is layered on separately, see pep594Modules above).
func baseModules() map[string]struct{} {
	names := []string{
		// Built-in / interpreter
		"builtins", "sys", "__future__", "gc", "weakref", "types", "copy",
		"copyreg", "pickle", "pickletools", "shelve", "marshal", "dis",
		"code", "codeop", "ast", "symtable", "token", "tokenize", "keyword",
		"py_compile", "compileall", "importlib", "pkgutil", "modulefinder",
		"runpy", "abc", "atexit", "traceback", "faulthandler", "gc",
		"inspect", "site", "sysconfig",
		// Text processing
		"string", "re", "difflib", "textwrap", "unicodedata", "stringprep",
		"readline", "rlcompleter",
		// Binary / data formats
		"struct", "codecs", "csv", "configparser", "netrc", "plistlib",
		"base64", "binascii", "quopri",
		// Data types
		"datetime", "calendar", "collections", "heapq", "bisect", "array",
		"enum", "queue", "copy", "pprint", "reprlib", "functools",
		"itertools", "operator", "contextlib", "dataclasses", "typing",
		// Numeric
		"numbers", "math", "cmath", "decimal", "fractions", "random",
		"statistics",
		// Functional
		"contextvars",
		// File and directory access
		"pathlib", "os", "fileinput", "stat", "filecmp", "tempfile", "glob",
		"fnmatch", "linecache", "shutil",
		// Persistence
		"dbm", "sqlite3",
		// Data compression and archiving
		"zlib", "gzip", "bz2", "lzma", "zipfile", "tarfile",
		// File formats
		"csv", "configparser",
		// Cryptographic services
		"hashlib", "hmac", "secrets",
		// Generic OS services
		"io", "time", "argparse", "getopt", "logging", "getpass", "curses",
		"platform", "errno", "ctypes",
		// Concurrent execution
		"threading", "multiprocessing", "concurrent", "subprocess", "sched",
		"queue", "contextvars", "_thread",
		// Networking and IPC
		"asyncio", "socket", "ssl", "select", "selectors", "signal", "mmap",
		// Internet data handling
		"email", "json", "mailbox", "mimetypes", "quopri", "uu",
		// Structured markup
		"html", "xml",
		// Internet protocols
		"webbrowser", "cgi", "cgitb", "wsgiref", "urllib", "http", "ftplib",
		"poplib", "imaplib", "smtplib", "telnetlib", "uuid", "socketserver",
		"xmlrpc", "ipaddress",
		// Multimedia
		"wave", "colorsys",
		// Internationalization
		"gettext", "locale",
		// Program frameworks
		"turtle", "cmd", "shlex",
		// GUI
		"tkinter",
		// Development tools
		"typing", "pydoc", "doctest", "unittest", "test", "lib2to3",
		// Debugging and profiling
		"bdb", "faulthandler", "pdb", "timeit", "trace", "tracemalloc",
		"cProfile", "profile", "pstats",
		// Software packaging
		"ensurepip", "venv", "zipapp", "distutils",
		// Python runtime
		"sys", "sysconfig", "builtins", "warnings", "dataclasses",
		"contextlib", "abc", "atexit", "traceback", "__main__",
		"importlib",
		// Custom interpreters
		"code", "codeop",
		// Importing
		"zipimport", "pkgutil", "modulefinder", "runpy", "importlib",
		// Miscellaneous services
		"formatter",
		// Unix
		"posix", "pwd", "grp", "termios", "tty", "pty", "fcntl", "resource",
		"syslog",
		// Superseded/legacy (imp is dropped from py312 on, see New)
		"optparse", "imp",
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
