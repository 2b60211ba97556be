package sim

import (
	"math"
	"testing"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestNormalizeGravity(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  *float64
	}{
		{"true means full scale", true, floatPtr(1)},
		{"false disables", false, floatPtr(0)},
		{"number is the scale", 2.5, floatPtr(2.5)},
		{"integer coerces", 3, floatPtr(3)},
		{"negative clamps to zero", -1.0, floatPtr(0)},
		{"nil means unset", nil, nil},
		{"string means unset", "down", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeGravity(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %v", *got)
			case tt.want != nil && got == nil:
				t.Errorf("expected %v, got nil", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("expected %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestGravityEnabled(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want bool
	}{
		{"no mass", Object{}, false},
		{"mass with default scale", Object{Mass: floatPtr(1)}, true},
		{"mass with zero scale", Object{Mass: floatPtr(1), GravityScale: floatPtr(0)}, false},
		{"mass with custom scale", Object{Mass: floatPtr(1), GravityScale: floatPtr(2)}, true},
		{"scale without mass", Object{GravityScale: floatPtr(2)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.GravityEnabled(); got != tt.want {
				t.Errorf("GravityEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObjectProperties(t *testing.T) {
	o := &Object{ID: "ball", Kind: KindCircle, X: 1, Y: 2, Radius: 3}

	o.SetProperty("x", 10.5)
	if v, _ := o.GetProperty("x"); v != 10.5 {
		t.Errorf("x = %v, want 10.5", v)
	}

	// Numeric fields accept any numeric shape.
	o.SetProperty("vy", int64(4))
	if o.VY != 4 {
		t.Errorf("vy = %v, want 4", o.VY)
	}

	// Values that cannot coerce leave typed fields untouched.
	o.SetProperty("y", "up")
	if o.Y != 2 {
		t.Errorf("y = %v, want 2 after failed coercion", o.Y)
	}

	// id and kind are immutable.
	o.SetProperty("id", "other")
	o.SetProperty("kind", "rect")
	if o.ID != "ball" || o.Kind != KindCircle {
		t.Errorf("id/kind mutated: %s/%s", o.ID, o.Kind)
	}

	// Unknown names land in Extra and round-trip.
	o.SetProperty("hp", 3)
	if v, ok := o.GetProperty("hp"); !ok || v != 3 {
		t.Errorf("hp = %v (%v), want 3", v, ok)
	}

	// width/height alias w/h.
	o.SetProperty("width", 7.0)
	if v, _ := o.GetProperty("w"); v != 7.0 {
		t.Errorf("w = %v, want 7", v)
	}

	// mass can be set and cleared.
	o.SetProperty("mass", 2)
	if o.Mass == nil || *o.Mass != 2 {
		t.Error("mass not set")
	}
	o.SetProperty("mass", nil)
	if o.Mass != nil {
		t.Error("mass not cleared")
	}
	if _, ok := o.GetProperty("mass"); ok {
		t.Error("cleared mass should read as absent")
	}

	// gravity accepts the boolean compatibility form.
	o.SetProperty("gravity", false)
	if o.GravityScale == nil || *o.GravityScale != 0 {
		t.Error("gravity=false should set scale 0")
	}
}

func TestObjectFromMap(t *testing.T) {
	o, err := ObjectFromMap(map[string]any{
		"id":      "c1",
		"kind":    "circle",
		"x":       5,
		"y":       6.5,
		"radius":  2,
		"mass":    1,
		"gravity": false,
		"hp":      3,
	})
	if err != nil {
		t.Fatalf("ObjectFromMap failed: %v", err)
	}
	if o.ID != "c1" || o.Kind != KindCircle {
		t.Errorf("id/kind = %s/%s", o.ID, o.Kind)
	}
	if o.X != 5 || o.Y != 6.5 || o.Radius != 2 {
		t.Errorf("geometry = %v,%v r=%v", o.X, o.Y, o.Radius)
	}
	if o.Mass == nil || *o.Mass != 1 {
		t.Error("mass not set")
	}
	if o.GravityEnabled() {
		t.Error("gravity=false should disable gravity")
	}
	if v, ok := o.GetProperty("hp"); !ok || v != 3 {
		t.Errorf("extra hp = %v (%v)", v, ok)
	}
}

func TestObjectFromMapDefaults(t *testing.T) {
	a, err := ObjectFromMap(map[string]any{})
	if err != nil {
		t.Fatalf("ObjectFromMap failed: %v", err)
	}
	if a.Kind != KindRect {
		t.Errorf("default kind = %s, want rect", a.Kind)
	}
	if a.ID == "" {
		t.Error("missing id should be generated")
	}

	b, _ := ObjectFromMap(map[string]any{})
	if a.ID == b.ID {
		t.Error("generated ids must be unique")
	}

	if _, err := ObjectFromMap(map[string]any{"kind": "triangle"}); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestObjectBoundsAndHitTest(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		x, y float64
		want bool
	}{
		{"circle center", Object{Kind: KindCircle, X: 10, Y: 10, Radius: 2}, 10, 10, true},
		{"circle edge", Object{Kind: KindCircle, X: 10, Y: 10, Radius: 2}, 12, 10, true},
		{"circle outside", Object{Kind: KindCircle, X: 10, Y: 10, Radius: 2}, 12.1, 10, false},
		{"rect corner", Object{Kind: KindRect, X: 5, Y: 5, W: 4, H: 3}, 5, 5, true},
		{"rect inside", Object{Kind: KindRect, X: 5, Y: 5, W: 4, H: 3}, 8.9, 7.9, true},
		{"rect far edge excluded", Object{Kind: KindRect, X: 5, Y: 5, W: 4, H: 3}, 9, 8, false},
		{"text inside", Object{Kind: KindText, X: 0, Y: 0, Text: "hi"}, 1.5, 0.5, true},
		{"text past end", Object{Kind: KindText, X: 0, Y: 0, Text: "hi"}, 2, 0, false},
		{"zero-size rect", Object{Kind: KindRect, X: 1, Y: 1}, 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.HitTest(tt.x, tt.y); got != tt.want {
				t.Errorf("HitTest(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}

	b := (&Object{Kind: KindCircle, X: 10, Y: 10, Radius: 2}).Bounds()
	if b.X != 8 || b.Y != 8 || b.W != 4 || b.H != 4 {
		t.Errorf("circle bounds = %+v, want 8,8 4x4", b)
	}
}

func TestObjectClone(t *testing.T) {
	o := &Object{
		ID:   "a",
		Kind: KindRect,
		X:    1,
		Mass: floatPtr(2),
		Extra: map[string]any{
			"hp": 3,
		},
	}
	c := o.Clone()
	c.X = 99
	*c.Mass = 99
	c.Extra["hp"] = 99

	if o.X != 1 {
		t.Error("clone shares position")
	}
	if *o.Mass != 2 {
		t.Error("clone shares mass pointer")
	}
	if o.Extra["hp"] != 3 {
		t.Error("clone shares extra map")
	}
	if math.Abs(c.X-99) > 0 {
		t.Error("clone did not take the write")
	}
}
