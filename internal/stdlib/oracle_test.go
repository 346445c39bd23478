package stdlib

import (
	"testing"

	"github.com/sourcemelt/sourcemelt/pkg/types"
)

func TestIsStdlibLeftmostSegment(t *testing.T) {
	o := New()

	tests := []struct {
		name   string
		target types.TargetVersion
		want   bool
	}{
		{"os", types.Py310, true},
		{"os.path", types.Py310, true},
		{"json", types.Py310, true},
		{"numpy", types.Py310, false},
		{"requests.adapters", types.Py310, false},
		{"", types.Py310, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.IsStdlib(tt.name, tt.target); got != tt.want {
				t.Errorf("IsStdlib(%q, %s) = %v, want %v", tt.name, tt.target, got, tt.want)
			}
		})
	}
}

func TestIsStdlibUnrecognizedVersion(t *testing.T) {
	o := New()
	if o.IsStdlib("os", types.TargetVersion("py99")) {
		t.Error("IsStdlib with unrecognized target version should return false")
	}
}

func TestIsStdlibVersionDeltas(t *testing.T) {
	o := New()

	if o.IsStdlib("tomllib", types.Py310) {
		t.Error("tomllib should not be stdlib before py311")
	}
	if !o.IsStdlib("tomllib", types.Py311) {
		t.Error("tomllib should be stdlib from py311 onward")
	}

	if !o.IsStdlib("distutils", types.Py311) {
		t.Error("distutils should still be stdlib at py311")
	}
	if o.IsStdlib("distutils", types.Py312) {
		t.Error("distutils should be removed from py312 onward")
	}

	if !o.IsStdlib("telnetlib", types.Py312) {
		t.Error("telnetlib (PEP 594) should still be present at py312")
	}
	if o.IsStdlib("telnetlib", types.Py313) {
		t.Error("telnetlib (PEP 594) should be removed at py313")
	}

	if o.IsStdlib("zoneinfo", types.Py38) {
		t.Error("zoneinfo should not be stdlib before py39")
	}
	if !o.IsStdlib("zoneinfo", types.Py39) {
		t.Error("zoneinfo should be stdlib from py39 onward")
	}

	if o.IsStdlib("graphlib", types.Py38) {
		t.Error("graphlib should not be stdlib before py39")
	}
	if !o.IsStdlib("graphlib", types.Py39) {
		t.Error("graphlib should be stdlib from py39 onward")
	}
}

func TestOracleImmutableAcrossCalls(t *testing.T) {
	o := New()
	first := o.IsStdlib("os", types.Py310)
	for i := 0; i < 1000; i++ {
		if got := o.IsStdlib("os", types.Py310); got != first {
			t.Fatalf("IsStdlib result changed across repeated calls: %v vs %v", got, first)
		}
	}
}
