// Package project defines the on-disk project document: the stage, its
// scene objects, the block program, and raw handler sources. This package
// depends on blocks and sim but neither depends on it.
package project

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/blockstage/internal/blocks"
	"github.com/vovakirdan/blockstage/internal/sim"
)

// Default stage dimensions, in cells.
const (
	DefaultStageWidth  = 80
	DefaultStageHeight = 24
)

// Stage describes the drawable area.
type Stage struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background,omitempty"`
}

// ObjectSpec is the declarative form of one scene object. Gravity accepts
// both the numeric scale and the legacy boolean flag.
type ObjectSpec struct {
	ID      string         `yaml:"id"`
	Kind    string         `yaml:"kind,omitempty"`
	X       float64        `yaml:"x"`
	Y       float64        `yaml:"y"`
	VX      float64        `yaml:"vx,omitempty"`
	VY      float64        `yaml:"vy,omitempty"`
	Radius  float64        `yaml:"radius,omitempty"`
	W       float64        `yaml:"w,omitempty"`
	H       float64        `yaml:"h,omitempty"`
	Text    string         `yaml:"text,omitempty"`
	Image   string         `yaml:"image,omitempty"`
	Color   string         `yaml:"color,omitempty"`
	Mass    *float64       `yaml:"mass,omitempty"`
	Gravity any            `yaml:"gravity,omitempty"`
	Extra   map[string]any `yaml:"extra,omitempty"`
}

// ToObject converts the spec into a simulation object.
func (s *ObjectSpec) ToObject() (*sim.Object, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("project: object without id")
	}
	kind := sim.KindRect
	if s.Kind != "" {
		k, ok := sim.ParseKind(s.Kind)
		if !ok {
			return nil, fmt.Errorf("project: object %q has unknown kind %q", s.ID, s.Kind)
		}
		kind = k
	}

	o := &sim.Object{
		ID:           s.ID,
		Kind:         kind,
		X:            s.X,
		Y:            s.Y,
		VX:           s.VX,
		VY:           s.VY,
		Radius:       s.Radius,
		W:            s.W,
		H:            s.H,
		Text:         s.Text,
		Image:        s.Image,
		Color:        s.Color,
		GravityScale: sim.NormalizeGravity(s.Gravity),
	}
	if s.Mass != nil {
		m := *s.Mass
		o.Mass = &m
	}
	if len(s.Extra) > 0 {
		o.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			o.Extra[k] = v
		}
	}
	return o, nil
}

// Physics overrides engine defaults per project.
type Physics struct {
	Gravity *float64 `yaml:"gravity,omitempty"`
}

// Project is one saved simulation.
type Project struct {
	Name    string        `yaml:"name"`
	Stage   Stage         `yaml:"stage,omitempty"`
	Objects []ObjectSpec  `yaml:"objects,omitempty"`
	Blocks  *blocks.Graph `yaml:"blocks,omitempty"`

	// Scripts carries raw handler sources keyed by handler name. They
	// override generated handlers of the same name, and they are the only
	// way onClick and onCollision get bodies.
	Scripts map[string]string `yaml:"scripts,omitempty"`

	Physics Physics `yaml:"physics,omitempty"`

	// FilePath records where the project was loaded from, when it was.
	FilePath string `yaml:"-"`
}

// Parse unmarshals and validates a project document.
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("project: cannot parse: %w", err)
	}
	if p.Stage.Width <= 0 {
		p.Stage.Width = DefaultStageWidth
	}
	if p.Stage.Height <= 0 {
		p.Stage.Height = DefaultStageHeight
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the document for the mistakes a save cannot round-trip:
// duplicate object ids, unknown kinds, and raw scripts bound to handler
// names the runtime will never invoke.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project: name is required")
	}
	seen := make(map[string]bool, len(p.Objects))
	for i := range p.Objects {
		o := &p.Objects[i]
		if seen[o.ID] {
			return fmt.Errorf("project: duplicate object id %q", o.ID)
		}
		seen[o.ID] = true
		if _, err := o.ToObject(); err != nil {
			return err
		}
	}
	for name := range p.Scripts {
		if !sim.KnownHandler(name) {
			return fmt.Errorf("project: script bound to unknown handler %q", name)
		}
	}
	return nil
}

// Marshal renders the project back to YAML.
func (p *Project) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("project: cannot marshal: %w", err)
	}
	return data, nil
}

// SceneObjects converts every object spec, preserving document order.
func (p *Project) SceneObjects() ([]*sim.Object, error) {
	out := make([]*sim.Object, 0, len(p.Objects))
	for i := range p.Objects {
		o, err := p.Objects[i].ToObject()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// CompileHandlers produces the handler source map for this project: block
// code generation first, then raw scripts layered over it. The warnings
// come from generation and name every skipped or degraded block.
func (p *Project) CompileHandlers() (map[string]string, []string) {
	handlers, warnings := blocks.Generate(p.Blocks)
	for name, src := range p.Scripts {
		handlers[name] = src
	}
	return handlers, warnings
}

// GravityOr returns the project's gravity override, or def when unset.
func (p *Project) GravityOr(def float64) float64 {
	if p.Physics.Gravity != nil {
		return *p.Physics.Gravity
	}
	return def
}
