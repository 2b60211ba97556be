package capability

import (
	"reflect"
	"testing"
)

func TestNormalizeCopiesNested(t *testing.T) {
	in := map[string]any{
		"id":   "circle1",
		"pos":  map[string]any{"x": 1.5, "y": int64(2)},
		"tags": []any{"a", "b"},
	}

	out := Normalize(in).(map[string]any)
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("Normalize changed the value: %v != %v", out, in)
	}

	// Mutating the copy must not leak back into the original.
	out["pos"].(map[string]any)["x"] = 99.0
	if in["pos"].(map[string]any)["x"] != 1.5 {
		t.Error("Normalize must deep-copy nested maps")
	}
}

func TestNormalizeTypedContainers(t *testing.T) {
	out := Normalize(map[string]float64{"dt": 0.1})
	m, ok := out.(map[string]any)
	if !ok || m["dt"] != 0.1 {
		t.Errorf("map[string]float64 should normalize to map[string]any, got %#v", out)
	}

	s, ok := Normalize([]string{"x", "y"}).([]any)
	if !ok || len(s) != 2 || s[0] != "x" {
		t.Errorf("[]string should normalize to []any, got %#v", s)
	}
}

func TestNormalizeStruct(t *testing.T) {
	type point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	out := Normalize(point{X: 3, Y: 4})
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("struct should normalize via JSON to a map, got %T", out)
	}
	if m["x"] != 3.0 || m["y"] != 4.0 {
		t.Errorf("normalized struct = %v", m)
	}
}

func TestNormalizeNilAndPointers(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("nil should stay nil")
	}

	var p *int
	if Normalize(p) != nil {
		t.Error("nil pointer should normalize to nil")
	}

	n := 7
	if Normalize(&n) != 7 {
		t.Error("pointer should normalize to its element")
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in       any
		expected float64
		ok       bool
	}{
		{1.5, 1.5, true},
		{int64(3), 3, true},
		{int(4), 4, true},
		{uint64(5), 5, true},
		{"6", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}

	for _, tc := range tests {
		got, ok := ToFloat(tc.in)
		if got != tc.expected || ok != tc.ok {
			t.Errorf("ToFloat(%#v) = (%v, %v), expected (%v, %v)", tc.in, got, ok, tc.expected, tc.ok)
		}
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		in       any
		expected bool
		ok       bool
	}{
		{true, true, true},
		{false, false, true},
		{1.0, true, true},
		{int64(0), false, true},
		{"yes", false, false},
	}

	for _, tc := range tests {
		got, ok := ToBool(tc.in)
		if got != tc.expected || ok != tc.ok {
			t.Errorf("ToBool(%#v) = (%v, %v), expected (%v, %v)", tc.in, got, ok, tc.expected, tc.ok)
		}
	}
}

func TestPositionalArgs(t *testing.T) {
	args := []any{"circle1", 2.5}

	if s, ok := StringArg(args, 0); !ok || s != "circle1" {
		t.Errorf("StringArg(0) = (%q, %v)", s, ok)
	}
	if f, ok := FloatArg(args, 1); !ok || f != 2.5 {
		t.Errorf("FloatArg(1) = (%v, %v)", f, ok)
	}
	if _, ok := StringArg(args, 5); ok {
		t.Error("StringArg past the end should not be ok")
	}
	if Arg(args, -1) != nil {
		t.Error("negative index should yield nil")
	}
}
