package blocks

import (
	"fmt"
	"strconv"
	"strings"
)

// Generator accumulates state for one generation pass: loop counters for
// unique loop variables and warnings for skipped or degraded blocks.
type Generator struct {
	loops    int
	warnings []string
}

// Statements generates the lines for a statement list. Unknown statement
// blocks are skipped so one unsupported block cannot invalidate the rest
// of the handler.
func (g *Generator) Statements(body []*Block) []string {
	var lines []string
	for _, b := range body {
		if b == nil {
			continue
		}
		gen, ok := statementGen(b.Type)
		if !ok {
			g.warnf("unknown statement block %q skipped", b.Type)
			continue
		}
		lines = append(lines, gen(g, b)...)
	}
	return lines
}

// Value resolves a value block to an expression. Missing or unrecognized
// value blocks degrade to undefined rather than failing the handler.
func (g *Generator) Value(b *Block) string {
	if b == nil {
		return "undefined"
	}
	gen, ok := valueGen(b.Type)
	if !ok {
		g.warnf("unknown value block %q degraded to undefined", b.Type)
		return "undefined"
	}
	return gen(g, b)
}

// Input resolves the named input of a block.
func (g *Generator) Input(b *Block, name string) string {
	return g.Value(b.Inputs[name])
}

// LoopVar hands out a fresh loop variable name for one generated loop.
func (g *Generator) LoopVar() string {
	v := "i" + strconv.Itoa(g.loops)
	g.loops++
	return v
}

func (g *Generator) warnf(format string, args ...any) {
	g.warnings = append(g.warnings, fmt.Sprintf(format, args...))
}

// indent prefixes each line with two spaces for one nesting level.
func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "  " + l
	}
	return out
}

// quote renders a string as a script string literal.
func quote(s string) string {
	return strconv.Quote(s)
}

// Generate produces one handler body per recognized top-level block.
// Multiple top-level blocks feeding the same handler are concatenated in
// graph order. Unrecognized top-level blocks are skipped; an empty or nil
// graph yields an empty map. The returned warnings describe everything that
// was skipped or degraded.
func Generate(g *Graph) (map[string]string, []string) {
	handlers := make(map[string]string)
	if g == nil {
		return handlers, nil
	}

	gen := &Generator{}
	bodies := make(map[string][]string)
	for _, b := range g.Blocks {
		if b == nil {
			continue
		}
		name, ok := handlerNames[b.Type]
		if !ok {
			gen.warnf("unknown top-level block %q skipped", b.Type)
			continue
		}
		if _, exists := bodies[name]; !exists {
			bodies[name] = []string{}
		}
		bodies[name] = append(bodies[name], gen.Statements(b.Body)...)
	}

	for name, lines := range bodies {
		handlers[name] = strings.Join(lines, "\n")
	}
	return handlers, gen.warnings
}
