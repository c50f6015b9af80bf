package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders cfg back to canonical config.cpp text: one indentation
// style, one blank line never inserted between statements, arrays always
// spelled `{...}` and entries always terminated with `;` — giving every
// config.cpp a single canonical textual form regardless of how the
// original author spaced or quoted it. This is the printer behind the
// `hemtt format` command (spec §6's CLI surface): format re-parses a
// config.cpp through the same Parse this package already exposes, then
// reprints it through Print, so formatting is defined as "parse, then
// print the canonical form" rather than a separate token-preserving
// rewrite pass.
func Print(cfg *Config) string {
	var b strings.Builder
	printProperties(&b, cfg.Root, 0)
	return b.String()
}

func printProperties(b *strings.Builder, props []Property, depth int) {
	for _, p := range props {
		switch p.Kind {
		case PropertyClass:
			printClass(b, p.Class, depth)
		case PropertyEntry:
			printEntry(b, p.Entry, depth)
		}
	}
}

func printClass(b *strings.Builder, c *Class, depth int) {
	if c.Kind == ClassDeleted {
		// a delete statement has no "class" keyword at all
		indent(b, depth)
		fmt.Fprintf(b, "delete %s;\n", c.Name)
		return
	}
	indent(b, depth)
	b.WriteString("class ")
	b.WriteString(c.Name)
	if c.Parent != "" {
		b.WriteString(": ")
		b.WriteString(c.Parent)
	}
	switch c.Kind {
	case ClassExternal:
		b.WriteString(";\n")
	default:
		b.WriteString("\n")
		indent(b, depth)
		b.WriteString("{\n")
		printProperties(b, c.Children, depth+1)
		indent(b, depth)
		b.WriteString("};\n")
	}
}

func printEntry(b *strings.Builder, e *Entry, depth int) {
	indent(b, depth)
	switch e.Kind {
	case EntryScalar:
		fmt.Fprintf(b, "%s = %s;\n", e.Name, printValue(e.Value))
	case EntryArray:
		fmt.Fprintf(b, "%s[] = %s;\n", e.Name, printArray(e.Array))
	case EntryArrayExpand:
		fmt.Fprintf(b, "%s[] += %s;\n", e.Name, printArray(e.Array))
	}
}

func printValue(v Value) string {
	switch v.Kind {
	case KindString:
		return `"` + strings.ReplaceAll(v.Str, `"`, `""`) + `"`
	case KindFloat32:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case KindInt32:
		return strconv.FormatInt(int64(v.Int), 10)
	default:
		return ""
	}
}

func printArray(a *Array) string {
	if a == nil || len(a.Elements) == 0 {
		return "{}"
	}
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		if el.Nested != nil {
			parts[i] = printArray(el.Nested)
		} else {
			parts[i] = printValue(el.Value)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("    ")
	}
}
