package sim

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vovakirdan/blockstage/internal/capability"
	"github.com/vovakirdan/blockstage/internal/core"
)

// Kind identifies the shape of a simulated object. An object's kind never
// changes after creation.
type Kind string

// The closed set of object kinds.
const (
	KindCircle Kind = "circle"
	KindRect   Kind = "rect"
	KindSprite Kind = "sprite"
	KindText   Kind = "text"
)

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindCircle, KindRect, KindSprite, KindText:
		return Kind(s), true
	}
	return "", false
}

// Object is one simulated entity. Instances are owned by the world's object
// table; code outside this package works on clones or through property
// accessors, never on shared pointers.
type Object struct {
	ID   string
	Kind Kind

	// Position and kinematic state. Circles are positioned by center,
	// rects and sprites by top-left corner.
	X, Y   float64
	VX, VY float64

	// Physics. A nil Mass means the object is not gravity-driven. A nil
	// GravityScale means the default scale 1; zero disables gravity for
	// this object even when mass is set.
	Mass         *float64
	GravityScale *float64

	// Shape fields by kind.
	Radius float64 // circle
	W, H   float64 // rect, sprite
	Text   string  // text
	Image  string  // sprite: the asset id backing it

	Color string

	// Extra holds script-set properties outside the typed fields.
	Extra map[string]any
}

// NormalizeGravity canonicalizes the accepted gravity-scale inputs. Numbers
// become the scale with negatives clamped to zero, the legacy boolean flag
// maps true to 1 and false to 0, and anything else means "unset" (default
// scale 1).
func NormalizeGravity(v any) *float64 {
	if b, ok := v.(bool); ok {
		scale := 0.0
		if b {
			scale = 1.0
		}
		return &scale
	}
	if f, ok := capability.ToFloat(v); ok {
		if f < 0 {
			f = 0
		}
		return &f
	}
	return nil
}

// GravityEnabled reports whether gravity integrates this object: mass must
// be defined and the gravity scale must not be zero.
func (o *Object) GravityEnabled() bool {
	return o.Mass != nil && o.gravityScale() != 0
}

func (o *Object) gravityScale() float64 {
	if o.GravityScale == nil {
		return 1.0
	}
	return *o.GravityScale
}

// GetProperty reads a property by its script-visible name. Unknown names
// fall through to Extra; a property that was never set reports false.
func (o *Object) GetProperty(name string) (any, bool) {
	switch name {
	case "id":
		return o.ID, true
	case "kind":
		return string(o.Kind), true
	case "x":
		return o.X, true
	case "y":
		return o.Y, true
	case "vx":
		return o.VX, true
	case "vy":
		return o.VY, true
	case "radius":
		return o.Radius, true
	case "w", "width":
		return o.W, true
	case "h", "height":
		return o.H, true
	case "text":
		return o.Text, true
	case "color":
		return o.Color, true
	case "image":
		return o.Image, true
	case "mass":
		if o.Mass == nil {
			return nil, false
		}
		return *o.Mass, true
	case "gravity":
		if o.GravityScale == nil {
			return nil, false
		}
		return *o.GravityScale, true
	default:
		v, ok := o.Extra[name]
		return v, ok
	}
}

// SetProperty writes a property by its script-visible name. Typed fields
// coerce their values; a value that cannot coerce leaves the field
// untouched. The id and kind are immutable and silently ignored. Unknown
// names land in Extra.
func (o *Object) SetProperty(name string, value any) {
	switch name {
	case "id", "kind":
		// immutable
	case "x":
		o.setFloat(&o.X, value)
	case "y":
		o.setFloat(&o.Y, value)
	case "vx":
		o.setFloat(&o.VX, value)
	case "vy":
		o.setFloat(&o.VY, value)
	case "radius":
		o.setFloat(&o.Radius, value)
	case "w", "width":
		o.setFloat(&o.W, value)
	case "h", "height":
		o.setFloat(&o.H, value)
	case "text":
		if s, ok := capability.ToString(value); ok {
			o.Text = s
		}
	case "color":
		if s, ok := capability.ToString(value); ok {
			o.Color = s
		}
	case "image":
		if s, ok := capability.ToString(value); ok {
			o.Image = s
		}
	case "mass":
		if value == nil {
			o.Mass = nil
		} else if f, ok := capability.ToFloat(value); ok {
			o.Mass = &f
		}
	case "gravity":
		o.GravityScale = NormalizeGravity(value)
	default:
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[name] = value
	}
}

func (o *Object) setFloat(dst *float64, value any) {
	if f, ok := capability.ToFloat(value); ok {
		*dst = f
	}
}

// Bounds returns the object's axis-aligned bounding box. Circles use the
// enclosing square; text spans one row of its rune count.
func (o *Object) Bounds() core.Rect {
	switch o.Kind {
	case KindCircle:
		return core.NewRect(o.X-o.Radius, o.Y-o.Radius, 2*o.Radius, 2*o.Radius)
	case KindText:
		return core.NewRect(o.X, o.Y, float64(utf8.RuneCountInString(o.Text)), 1)
	default:
		return core.NewRect(o.X, o.Y, o.W, o.H)
	}
}

// HitTest reports whether the stage point (x, y) falls inside the object.
func (o *Object) HitTest(x, y float64) bool {
	if o.Kind == KindCircle {
		dx, dy := x-o.X, y-o.Y
		return dx*dx+dy*dy <= o.Radius*o.Radius
	}
	return o.Bounds().Contains(x, y)
}

// Clone returns a copy detached from the table. Extra values are copied one
// level deep, which is enough for readers that never mutate them.
func (o *Object) Clone() *Object {
	c := *o
	if o.Mass != nil {
		m := *o.Mass
		c.Mass = &m
	}
	if o.GravityScale != nil {
		g := *o.GravityScale
		c.GravityScale = &g
	}
	if o.Extra != nil {
		c.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// ObjectFromMap builds an object from a JSON-shaped specification, the form
// capability calls and project files use. A missing id gets a generated
// one; a missing kind defaults to rect. Unknown keys land in Extra.
func ObjectFromMap(spec map[string]any) (*Object, error) {
	o := &Object{Kind: KindRect}
	if id, ok := capability.ToString(spec["id"]); ok && id != "" {
		o.ID = id
	} else {
		o.ID = uuid.NewString()
	}
	if k, ok := capability.ToString(spec["kind"]); ok {
		kind, valid := ParseKind(k)
		if !valid {
			return nil, fmt.Errorf("sim: unknown object kind %q", k)
		}
		o.Kind = kind
	}

	for key, value := range spec {
		switch key {
		case "id", "kind":
			// handled above
		default:
			o.SetProperty(key, value)
		}
	}
	return o, nil
}
