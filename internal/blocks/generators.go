package blocks

import (
	"fmt"
	"strconv"
)

// Built-in block set. Statement blocks map onto the capability whitelist
// plus basic control flow; value blocks cover literals, properties,
// variables, operators, and the tick payload.
func init() {
	RegisterStatement("set_property", genSetProperty)
	RegisterStatement("change_property", genChangeProperty)
	RegisterStatement("emit", genEmit)
	RegisterStatement("log", genLog)
	RegisterStatement("load_image", genLoadImage)
	RegisterStatement("create_sprite", genCreateSprite)
	RegisterStatement("add_object", genAddObject)
	RegisterStatement("remove_object", genRemoveObject)
	RegisterStatement("set_var", genSetVar)
	RegisterStatement("if", genIf)
	RegisterStatement("repeat", genRepeat)

	RegisterValue("number", genNumber)
	RegisterValue("text", genText)
	RegisterValue("boolean", genBoolean)
	RegisterValue("get_property", genGetProperty)
	RegisterValue("get_var", genGetVar)
	RegisterValue("arith", genArith)
	RegisterValue("compare", genCompare)
	RegisterValue("logic", genLogic)
	RegisterValue("delta_time", genDeltaTime)
	RegisterValue("elapsed_time", genElapsedTime)
	RegisterValue("event_arg", genEventArg)
}

func genSetProperty(g *Generator, b *Block) []string {
	obj, okObj := fieldString(b, "object")
	prop, okProp := fieldString(b, "property")
	if !okObj || !okProp {
		g.warnf("set_property without object/property skipped")
		return nil
	}
	return []string{fmt.Sprintf("setProperty(%s, %s, %s);", quote(obj), quote(prop), g.Input(b, "value"))}
}

func genChangeProperty(g *Generator, b *Block) []string {
	obj, okObj := fieldString(b, "object")
	prop, okProp := fieldString(b, "property")
	if !okObj || !okProp {
		g.warnf("change_property without object/property skipped")
		return nil
	}
	return []string{fmt.Sprintf("setProperty(%s, %s, (getProperty(%s, %s) || 0) + (%s));",
		quote(obj), quote(prop), quote(obj), quote(prop), g.Input(b, "by"))}
}

func genEmit(g *Generator, b *Block) []string {
	event, ok := fieldString(b, "event")
	if !ok {
		g.warnf("emit without event name skipped")
		return nil
	}
	if b.Inputs["value"] != nil {
		return []string{fmt.Sprintf("emit(%s, %s);", quote(event), g.Input(b, "value"))}
	}
	return []string{fmt.Sprintf("emit(%s);", quote(event))}
}

func genLog(g *Generator, b *Block) []string {
	return []string{fmt.Sprintf("log(%s);", g.Input(b, "message"))}
}

func genLoadImage(g *Generator, b *Block) []string {
	asset, ok := fieldString(b, "asset")
	if !ok {
		g.warnf("load_image without asset skipped")
		return nil
	}
	return []string{fmt.Sprintf("loadImage(%s);", quote(asset))}
}

func genCreateSprite(g *Generator, b *Block) []string {
	obj, okObj := fieldString(b, "object")
	img, okImg := fieldString(b, "image")
	if !okObj || !okImg {
		g.warnf("create_sprite without object/image skipped")
		return nil
	}
	return []string{fmt.Sprintf("createSprite(%s, %s, %s, %s);",
		quote(obj), g.Input(b, "x"), g.Input(b, "y"), quote(img))}
}

func genAddObject(g *Generator, b *Block) []string {
	obj, ok := fieldString(b, "object")
	if !ok {
		g.warnf("add_object without object id skipped")
		return nil
	}
	kind, ok := fieldString(b, "kind")
	if !ok {
		kind = "rect"
	}
	return []string{fmt.Sprintf("addObject({ id: %s, kind: %s, x: %s, y: %s });",
		quote(obj), quote(kind), g.Input(b, "x"), g.Input(b, "y"))}
}

func genRemoveObject(g *Generator, b *Block) []string {
	obj, ok := fieldString(b, "object")
	if !ok {
		g.warnf("remove_object without object skipped")
		return nil
	}
	return []string{fmt.Sprintf("removeObject(%s);", quote(obj))}
}

func genSetVar(g *Generator, b *Block) []string {
	name, ok := fieldString(b, "name")
	if !ok {
		g.warnf("set_var without name skipped")
		return nil
	}
	return []string{fmt.Sprintf("vars[%s] = %s;", quote(name), g.Input(b, "value"))}
}

func genIf(g *Generator, b *Block) []string {
	lines := []string{fmt.Sprintf("if (%s) {", g.Input(b, "condition"))}
	lines = append(lines, indent(g.Statements(b.Body))...)
	if len(b.Else) > 0 {
		lines = append(lines, "} else {")
		lines = append(lines, indent(g.Statements(b.Else))...)
	}
	lines = append(lines, "}")
	return lines
}

func genRepeat(g *Generator, b *Block) []string {
	v := g.LoopVar()
	lines := []string{fmt.Sprintf("for (var %s = 0; %s < (%s); %s++) {", v, v, g.Input(b, "times"), v)}
	lines = append(lines, indent(g.Statements(b.Body))...)
	lines = append(lines, "}")
	return lines
}

func genNumber(g *Generator, b *Block) string {
	n, ok := fieldFloat(b, "value")
	if !ok {
		g.warnf("number block without value degraded to 0")
		return "0"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func genText(g *Generator, b *Block) string {
	s, ok := fieldString(b, "value")
	if !ok {
		g.warnf("text block without value degraded to empty string")
		return quote("")
	}
	return quote(s)
}

func genBoolean(g *Generator, b *Block) string {
	v, ok := fieldBool(b, "value")
	if !ok {
		g.warnf("boolean block without value degraded to false")
		return "false"
	}
	return strconv.FormatBool(v)
}

func genGetProperty(g *Generator, b *Block) string {
	obj, okObj := fieldString(b, "object")
	prop, okProp := fieldString(b, "property")
	if !okObj || !okProp {
		g.warnf("get_property without object/property degraded to undefined")
		return "undefined"
	}
	return fmt.Sprintf("getProperty(%s, %s)", quote(obj), quote(prop))
}

func genGetVar(g *Generator, b *Block) string {
	name, ok := fieldString(b, "name")
	if !ok {
		g.warnf("get_var without name degraded to undefined")
		return "undefined"
	}
	return fmt.Sprintf("vars[%s]", quote(name))
}

var arithOps = map[string]string{
	"+": "+",
	"-": "-",
	"*": "*",
	"/": "/",
	"%": "%",
}

func genArith(g *Generator, b *Block) string {
	op, _ := fieldString(b, "op")
	jsOp, ok := arithOps[op]
	if !ok {
		g.warnf("arith block with unknown op %q degraded to undefined", op)
		return "undefined"
	}
	return fmt.Sprintf("((%s) %s (%s))", g.Input(b, "a"), jsOp, g.Input(b, "b"))
}

// compareOps maps visual equality onto strict script equality so comparisons
// never coerce types.
var compareOps = map[string]string{
	"==": "===",
	"!=": "!==",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
}

func genCompare(g *Generator, b *Block) string {
	op, _ := fieldString(b, "op")
	jsOp, ok := compareOps[op]
	if !ok {
		g.warnf("compare block with unknown op %q degraded to undefined", op)
		return "undefined"
	}
	return fmt.Sprintf("((%s) %s (%s))", g.Input(b, "a"), jsOp, g.Input(b, "b"))
}

func genLogic(g *Generator, b *Block) string {
	op, _ := fieldString(b, "op")
	switch op {
	case "and":
		return fmt.Sprintf("((%s) && (%s))", g.Input(b, "a"), g.Input(b, "b"))
	case "or":
		return fmt.Sprintf("((%s) || (%s))", g.Input(b, "a"), g.Input(b, "b"))
	case "not":
		return fmt.Sprintf("(!(%s))", g.Input(b, "a"))
	default:
		g.warnf("logic block with unknown op %q degraded to undefined", op)
		return "undefined"
	}
}

func genDeltaTime(g *Generator, b *Block) string {
	return "args.dt"
}

func genElapsedTime(g *Generator, b *Block) string {
	return "args.t"
}

func genEventArg(g *Generator, b *Block) string {
	name, ok := fieldString(b, "name")
	if !ok {
		g.warnf("event_arg without name degraded to undefined")
		return "undefined"
	}
	return fmt.Sprintf("args[%s]", quote(name))
}
