package blocks

import (
	"fmt"
	"sort"
	"sync"
)

// StatementGen generates the script lines for one statement block.
// Nested bodies are generated through the Generator so indentation and
// warnings stay consistent.
type StatementGen func(g *Generator, b *Block) []string

// ValueGen generates a single script expression for one value block.
type ValueGen func(g *Generator, b *Block) string

var (
	stmtGens  = make(map[string]StatementGen)
	valueGens = make(map[string]ValueGen)
	mu        sync.RWMutex
)

// RegisterStatement adds a statement generator to the registry.
// Typically called from an init() function.
// Panics if the block type is already registered.
func RegisterStatement(blockType string, gen StatementGen) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := stmtGens[blockType]; exists {
		panic(fmt.Sprintf("blocks: statement %q already registered", blockType))
	}
	stmtGens[blockType] = gen
}

// RegisterValue adds a value generator to the registry.
// Typically called from an init() function.
// Panics if the block type is already registered.
func RegisterValue(blockType string, gen ValueGen) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := valueGens[blockType]; exists {
		panic(fmt.Sprintf("blocks: value %q already registered", blockType))
	}
	valueGens[blockType] = gen
}

// StatementTypes returns all registered statement block types, sorted.
func StatementTypes() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(stmtGens))
	for t := range stmtGens {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValueTypes returns all registered value block types, sorted.
func ValueTypes() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(valueGens))
	for t := range valueGens {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func statementGen(blockType string) (StatementGen, bool) {
	mu.RLock()
	defer mu.RUnlock()
	gen, ok := stmtGens[blockType]
	return gen, ok
}

func valueGen(blockType string) (ValueGen, bool) {
	mu.RLock()
	defer mu.RUnlock()
	gen, ok := valueGens[blockType]
	return gen, ok
}
