package blocks

import (
	"strings"
	"sync"
	"testing"

	"github.com/vovakirdan/blockstage/internal/capability"
	"github.com/vovakirdan/blockstage/internal/script"
)

func numberBlock(v float64) *Block {
	return &Block{Type: "number", Fields: map[string]any{"value": v}}
}

func textBlock(s string) *Block {
	return &Block{Type: "text", Fields: map[string]any{"value": s}}
}

func getVarBlock(name string) *Block {
	return &Block{Type: "get_var", Fields: map[string]any{"name": name}}
}

func logBlock(msg *Block) *Block {
	return &Block{Type: "log", Inputs: map[string]*Block{"message": msg}}
}

func TestGenerateEmptyGraph(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
	}{
		{"nil graph", nil},
		{"no blocks", &Graph{}},
		{"nil block entry", &Graph{Blocks: []*Block{nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers, warnings := Generate(tt.graph)
			if len(handlers) != 0 {
				t.Errorf("expected no handlers, got %v", handlers)
			}
			if len(warnings) != 0 {
				t.Errorf("expected no warnings, got %v", warnings)
			}
		})
	}
}

func TestGenerateStartOnly(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onStart", Body: []*Block{logBlock(textBlock("hello"))}},
	}}

	handlers, warnings := Generate(g)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(handlers) != 1 {
		t.Fatalf("expected 1 handler, got %d", len(handlers))
	}
	if got := handlers[HandlerStart]; got != `log("hello");` {
		t.Errorf("unexpected body: %q", got)
	}
}

func TestGenerateBothHandlers(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onStart", Body: []*Block{logBlock(textBlock("start"))}},
		{Type: "onUpdate", Body: []*Block{logBlock(textBlock("tick"))}},
	}}

	handlers, _ := Generate(g)
	if len(handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(handlers))
	}
	if _, ok := handlers[HandlerStart]; !ok {
		t.Error("missing onStart handler")
	}
	if _, ok := handlers[HandlerTick]; !ok {
		t.Error("missing onTick handler")
	}
	if got := handlers[HandlerTick]; got != `log("tick");` {
		t.Errorf("onUpdate should feed the onTick handler, got %q", got)
	}
}

func TestGenerateEmptyHandlerBody(t *testing.T) {
	g := &Graph{Blocks: []*Block{{Type: "onStart"}}}

	handlers, _ := Generate(g)
	body, ok := handlers[HandlerStart]
	if !ok {
		t.Fatal("empty top-level block should still produce its handler entry")
	}
	if body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestGenerateUnknownTopLevel(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onShake", Body: []*Block{logBlock(textBlock("nope"))}},
		{Type: "onStart", Body: []*Block{logBlock(textBlock("yes"))}},
	}}

	handlers, warnings := Generate(g)
	if len(handlers) != 1 {
		t.Fatalf("expected 1 handler, got %d", len(handlers))
	}
	if got := handlers[HandlerStart]; got != `log("yes");` {
		t.Errorf("unexpected body: %q", got)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "onShake") {
		t.Errorf("expected a warning naming the skipped block, got %v", warnings)
	}
}

func TestGenerateUnknownStatement(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onStart", Body: []*Block{
			logBlock(textBlock("before")),
			{Type: "teleport"},
			logBlock(textBlock("after")),
		}},
	}}

	handlers, warnings := Generate(g)
	want := "log(\"before\");\nlog(\"after\");"
	if got := handlers[HandlerStart]; got != want {
		t.Errorf("expected unknown statement skipped, got %q", got)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "teleport") {
		t.Errorf("expected a warning naming the skipped statement, got %v", warnings)
	}
}

func TestGenerateUnknownValue(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onStart", Body: []*Block{
			logBlock(&Block{Type: "mystery"}),
		}},
	}}

	handlers, warnings := Generate(g)
	if got := handlers[HandlerStart]; got != "log(undefined);" {
		t.Errorf("expected unknown value degraded to undefined, got %q", got)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "mystery") {
		t.Errorf("expected a warning naming the unknown value, got %v", warnings)
	}
}

func TestGenerateConcatenatesSameHandler(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onStart", Body: []*Block{logBlock(textBlock("first"))}},
		{Type: "onStart", Body: []*Block{logBlock(textBlock("second"))}},
	}}

	handlers, _ := Generate(g)
	want := "log(\"first\");\nlog(\"second\");"
	if got := handlers[HandlerStart]; got != want {
		t.Errorf("expected bodies concatenated in graph order, got %q", got)
	}
}

func TestStatementGeneration(t *testing.T) {
	tests := []struct {
		name  string
		block *Block
		want  string
	}{
		{
			"set property",
			&Block{Type: "set_property",
				Fields: map[string]any{"object": "ball", "property": "x"},
				Inputs: map[string]*Block{"value": numberBlock(10)}},
			`setProperty("ball", "x", 10);`,
		},
		{
			"change property",
			&Block{Type: "change_property",
				Fields: map[string]any{"object": "ball", "property": "x"},
				Inputs: map[string]*Block{"by": numberBlock(5)}},
			`setProperty("ball", "x", (getProperty("ball", "x") || 0) + (5));`,
		},
		{
			"emit with value",
			&Block{Type: "emit",
				Fields: map[string]any{"event": "scored"},
				Inputs: map[string]*Block{"value": numberBlock(1)}},
			`emit("scored", 1);`,
		},
		{
			"emit without value",
			&Block{Type: "emit", Fields: map[string]any{"event": "scored"}},
			`emit("scored");`,
		},
		{
			"log",
			logBlock(textBlock("hi")),
			`log("hi");`,
		},
		{
			"load image",
			&Block{Type: "load_image", Fields: map[string]any{"asset": "hero"}},
			`loadImage("hero");`,
		},
		{
			"create sprite",
			&Block{Type: "create_sprite",
				Fields: map[string]any{"object": "hero", "image": "hero"},
				Inputs: map[string]*Block{"x": numberBlock(3), "y": numberBlock(4)}},
			`createSprite("hero", 3, 4, "hero");`,
		},
		{
			"add object",
			&Block{Type: "add_object",
				Fields: map[string]any{"object": "coin", "kind": "circle"},
				Inputs: map[string]*Block{"x": numberBlock(1), "y": numberBlock(2)}},
			`addObject({ id: "coin", kind: "circle", x: 1, y: 2 });`,
		},
		{
			"add object default kind",
			&Block{Type: "add_object",
				Fields: map[string]any{"object": "box"},
				Inputs: map[string]*Block{"x": numberBlock(0), "y": numberBlock(0)}},
			`addObject({ id: "box", kind: "rect", x: 0, y: 0 });`,
		},
		{
			"remove object",
			&Block{Type: "remove_object", Fields: map[string]any{"object": "coin"}},
			`removeObject("coin");`,
		},
		{
			"set var",
			&Block{Type: "set_var",
				Fields: map[string]any{"name": "score"},
				Inputs: map[string]*Block{"value": numberBlock(0)}},
			`vars["score"] = 0;`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Graph{Blocks: []*Block{{Type: "onStart", Body: []*Block{tt.block}}}}
			handlers, warnings := Generate(g)
			if len(warnings) != 0 {
				t.Errorf("unexpected warnings: %v", warnings)
			}
			if got := handlers[HandlerStart]; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValueGeneration(t *testing.T) {
	tests := []struct {
		name  string
		block *Block
		want  string
	}{
		{"number", numberBlock(3.5), "3.5"},
		{"integral number", numberBlock(7), "7"},
		{"text", textBlock("hi"), `"hi"`},
		{"boolean", &Block{Type: "boolean", Fields: map[string]any{"value": true}}, "true"},
		{
			"get property",
			&Block{Type: "get_property", Fields: map[string]any{"object": "ball", "property": "x"}},
			`getProperty("ball", "x")`,
		},
		{"get var", getVarBlock("score"), `vars["score"]`},
		{
			"arith add",
			&Block{Type: "arith",
				Fields: map[string]any{"op": "+"},
				Inputs: map[string]*Block{"a": numberBlock(1), "b": numberBlock(2)}},
			"((1) + (2))",
		},
		{
			"compare equality is strict",
			&Block{Type: "compare",
				Fields: map[string]any{"op": "=="},
				Inputs: map[string]*Block{"a": numberBlock(1), "b": numberBlock(2)}},
			"((1) === (2))",
		},
		{
			"compare inequality is strict",
			&Block{Type: "compare",
				Fields: map[string]any{"op": "!="},
				Inputs: map[string]*Block{"a": numberBlock(1), "b": numberBlock(2)}},
			"((1) !== (2))",
		},
		{
			"compare less or equal",
			&Block{Type: "compare",
				Fields: map[string]any{"op": "<="},
				Inputs: map[string]*Block{"a": numberBlock(1), "b": numberBlock(2)}},
			"((1) <= (2))",
		},
		{
			"logic and",
			&Block{Type: "logic",
				Fields: map[string]any{"op": "and"},
				Inputs: map[string]*Block{"a": {Type: "boolean", Fields: map[string]any{"value": true}}, "b": {Type: "boolean", Fields: map[string]any{"value": false}}}},
			"((true) && (false))",
		},
		{
			"logic not",
			&Block{Type: "logic",
				Fields: map[string]any{"op": "not"},
				Inputs: map[string]*Block{"a": {Type: "boolean", Fields: map[string]any{"value": true}}}},
			"(!(true))",
		},
		{"delta time", &Block{Type: "delta_time"}, "args.dt"},
		{"elapsed time", &Block{Type: "elapsed_time"}, "args.t"},
		{"event arg", &Block{Type: "event_arg", Fields: map[string]any{"name": "other"}}, `args["other"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Graph{Blocks: []*Block{{Type: "onStart", Body: []*Block{logBlock(tt.block)}}}}
			handlers, warnings := Generate(g)
			if len(warnings) != 0 {
				t.Errorf("unexpected warnings: %v", warnings)
			}
			want := "log(" + tt.want + ");"
			if got := handlers[HandlerStart]; got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}
}

func TestValueGenerationDegraded(t *testing.T) {
	tests := []struct {
		name  string
		block *Block
		want  string
	}{
		{"number without value", &Block{Type: "number"}, "0"},
		{"text without value", &Block{Type: "text"}, `""`},
		{"boolean without value", &Block{Type: "boolean"}, "false"},
		{"arith unknown op", &Block{Type: "arith", Fields: map[string]any{"op": "^"}}, "undefined"},
		{"compare unknown op", &Block{Type: "compare", Fields: map[string]any{"op": "~"}}, "undefined"},
		{"logic unknown op", &Block{Type: "logic", Fields: map[string]any{"op": "xor"}}, "undefined"},
		{"event arg without name", &Block{Type: "event_arg"}, "undefined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Graph{Blocks: []*Block{{Type: "onStart", Body: []*Block{logBlock(tt.block)}}}}
			handlers, warnings := Generate(g)
			want := "log(" + tt.want + ");"
			if got := handlers[HandlerStart]; got != want {
				t.Errorf("got %q, want %q", got, want)
			}
			if len(warnings) == 0 {
				t.Error("expected a degradation warning")
			}
		})
	}
}

func TestGenerateIfElse(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onUpdate", Body: []*Block{
			{Type: "if",
				Inputs: map[string]*Block{"condition": {Type: "compare",
					Fields: map[string]any{"op": "<="},
					Inputs: map[string]*Block{"a": getVarBlock("hp"), "b": numberBlock(0)}}},
				Body: []*Block{{Type: "emit", Fields: map[string]any{"event": "dead"}}},
				Else: []*Block{logBlock(textBlock("alive"))},
			},
		}},
	}}

	handlers, warnings := Generate(g)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	want := strings.Join([]string{
		`if (((vars["hp"]) <= (0))) {`,
		`  emit("dead");`,
		`} else {`,
		`  log("alive");`,
		`}`,
	}, "\n")
	if got := handlers[HandlerTick]; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateNestedLoops(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onStart", Body: []*Block{
			{Type: "repeat",
				Inputs: map[string]*Block{"times": numberBlock(2)},
				Body: []*Block{
					{Type: "repeat",
						Inputs: map[string]*Block{"times": numberBlock(3)},
						Body:   []*Block{logBlock(textBlock("tick"))},
					},
				},
			},
		}},
	}}

	handlers, warnings := Generate(g)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	want := strings.Join([]string{
		"for (var i0 = 0; i0 < (2); i0++) {",
		"  for (var i1 = 0; i1 < (3); i1++) {",
		`    log("tick");`,
		"  }",
		"}",
	}, "\n")
	if got := handlers[HandlerStart]; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRegistryListsSorted(t *testing.T) {
	stmts := StatementTypes()
	for _, want := range []string{"emit", "if", "log", "repeat", "set_property", "set_var"} {
		found := false
		for _, s := range stmts {
			if s == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("statement type %q not registered", want)
		}
	}
	for i := 1; i < len(stmts); i++ {
		if stmts[i-1] >= stmts[i] {
			t.Errorf("statement types not sorted: %q before %q", stmts[i-1], stmts[i])
		}
	}

	vals := ValueTypes()
	for i := 1; i < len(vals); i++ {
		if vals[i-1] >= vals[i] {
			t.Errorf("value types not sorted: %q before %q", vals[i-1], vals[i])
		}
	}
}

// TestGeneratedHandlersRun feeds generated handlers through the script VM
// and checks the capability calls they make.
func TestGeneratedHandlersRun(t *testing.T) {
	g := &Graph{Blocks: []*Block{
		{Type: "onStart", Body: []*Block{
			{Type: "set_var",
				Fields: map[string]any{"name": "count"},
				Inputs: map[string]*Block{"value": numberBlock(0)}},
			{Type: "set_property",
				Fields: map[string]any{"object": "ball", "property": "y"},
				Inputs: map[string]*Block{"value": numberBlock(5)}},
		}},
		{Type: "onUpdate", Body: []*Block{
			{Type: "set_var",
				Fields: map[string]any{"name": "count"},
				Inputs: map[string]*Block{"value": {Type: "arith",
					Fields: map[string]any{"op": "+"},
					Inputs: map[string]*Block{"a": getVarBlock("count"), "b": numberBlock(1)}}}},
			{Type: "if",
				Inputs: map[string]*Block{"condition": {Type: "compare",
					Fields: map[string]any{"op": "=="},
					Inputs: map[string]*Block{"a": getVarBlock("count"), "b": numberBlock(2)}}},
				Body: []*Block{
					{Type: "emit",
						Fields: map[string]any{"event": "done"},
						Inputs: map[string]*Block{"value": getVarBlock("count")}},
				}},
		}},
	}}

	handlers, warnings := Generate(g)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	var (
		mu    sync.Mutex
		names []string
		calls [][]any
	)
	vm := script.New(func(name string, args []any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, name)
		calls = append(calls, args)
		return nil, nil
	})
	if errs := vm.Load(handlers); len(errs) != 0 {
		t.Fatalf("generated handlers failed to compile: %v", errs)
	}

	if _, err := vm.Invoke(HandlerStart, nil); err != nil {
		t.Fatalf("onStart failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := vm.Invoke(HandlerTick, map[string]any{"dt": 0.1, "t": float64(i) * 0.1}); err != nil {
			t.Fatalf("onTick failed: %v", err)
		}
	}

	if len(names) != 2 {
		t.Fatalf("expected 2 capability calls, got %d (%v)", len(names), names)
	}
	if names[0] != capability.SetProperty {
		t.Errorf("expected first call setProperty, got %q", names[0])
	}
	if id, _ := capability.StringArg(calls[0], 0); id != "ball" {
		t.Errorf("setProperty object = %q, want ball", id)
	}
	if y, ok := capability.FloatArg(calls[0], 2); !ok || y != 5 {
		t.Errorf("setProperty value = %v, want 5", calls[0][2])
	}
	if names[1] != capability.Emit {
		t.Errorf("expected second call emit, got %q", names[1])
	}
	if ev, _ := capability.StringArg(calls[1], 0); ev != "done" {
		t.Errorf("emit event = %q, want done", ev)
	}
	if n, ok := capability.FloatArg(calls[1], 1); !ok || n != 2 {
		t.Errorf("emit value = %v, want 2", calls[1][1])
	}
}
