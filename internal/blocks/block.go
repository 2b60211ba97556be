// Package blocks turns visual block graphs into restricted script text.
// Each recognized top-level block becomes one named handler body; everything
// a generated body can do is expressed through the capability whitelist,
// the shared vars store, and the handler's event payload. Block types
// register generators in init() functions, allowing new blocks without
// touching the code generator itself.
package blocks

// Block is one node of a visual program graph. Fields hold literal
// configuration, Inputs hold nested value blocks, and Body/Else hold
// nested statement blocks for container types.
type Block struct {
	Type   string            `yaml:"type" json:"type"`
	Fields map[string]any    `yaml:"fields,omitempty" json:"fields,omitempty"`
	Inputs map[string]*Block `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Body   []*Block          `yaml:"body,omitempty" json:"body,omitempty"`
	Else   []*Block          `yaml:"else,omitempty" json:"else,omitempty"`
}

// Graph is a complete visual program: an ordered list of top-level blocks.
type Graph struct {
	Blocks []*Block `yaml:"blocks" json:"blocks"`
}

// Handler names produced by code generation.
const (
	HandlerStart = "onStart"
	HandlerTick  = "onTick"
)

// handlerNames maps recognized top-level block types to the handler each
// one feeds. Anything else at the top level is skipped.
var handlerNames = map[string]string{
	"onStart":  HandlerStart,
	"onUpdate": HandlerTick,
}

// fieldString returns a string field of the block.
func fieldString(b *Block, key string) (string, bool) {
	v, ok := b.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// fieldFloat returns a numeric field of the block, accepting the numeric
// shapes YAML and JSON decoding produce.
func fieldFloat(b *Block, key string) (float64, bool) {
	v, ok := b.Fields[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// fieldBool returns a boolean field of the block.
func fieldBool(b *Block, key string) (bool, bool) {
	v, ok := b.Fields[key]
	if !ok {
		return false, false
	}
	val, ok := v.(bool)
	return val, ok
}
