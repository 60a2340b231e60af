package yamlenc

import (
	"strconv"
	"strings"
)

const indentUnit = "  "

// Marshal renders v starting at indent level 0.
func Marshal(v Value) string {
	return Encode(v, 0)
}

// Encode renders v with every top-level line indented by indent levels of
// two spaces. Output for the same input is byte-identical across calls.
func Encode(v Value, indent int) string {
	if indent < 0 {
		indent = 0
	}
	var b strings.Builder
	switch v.kind {
	case KindMapping:
		writeMapping(&b, v.m.Entries(), indent)
	case KindSequence:
		writeSequence(&b, v.items, indent)
	case KindNull:
	default:
		b.WriteString(pad(indent))
		b.WriteString(Scalar(v))
		b.WriteByte('\n')
	}
	return b.String()
}

func writeMapping(b *strings.Builder, entries []Entry, indent int) {
	prefix := pad(indent)
	for _, e := range entries {
		if e.Value.omitted() {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(e.Key)
		switch e.Value.kind {
		case KindMapping:
			b.WriteString(":\n")
			writeMapping(b, e.Value.m.live(), indent+1)
		case KindSequence:
			b.WriteString(":\n")
			writeSequence(b, e.Value.items, indent)
		default:
			b.WriteString(": ")
			b.WriteString(Scalar(e.Value))
			b.WriteByte('\n')
		}
	}
}

// writeSequence renders items under a key that sits at indent. Each item
// starts with "- " one level deeper. The remaining keys of a mapping item
// continue two levels deeper so they line up with the inlined first key.
func writeSequence(b *strings.Builder, items []Value, indent int) {
	dash := pad(indent) + indentUnit + "- "
	for _, item := range items {
		if item.omitted() {
			continue
		}
		switch item.kind {
		case KindMapping:
			entries := item.m.live()
			first := entries[0]
			b.WriteString(dash)
			b.WriteString(first.Key)
			switch first.Value.kind {
			case KindMapping:
				b.WriteString(":\n")
				writeMapping(b, first.Value.m.live(), indent+3)
			case KindSequence:
				b.WriteString(":\n")
				writeSequence(b, first.Value.items, indent+2)
			default:
				b.WriteString(": ")
				b.WriteString(Scalar(first.Value))
				b.WriteByte('\n')
			}
			writeMapping(b, entries[1:], indent+2)
		case KindSequence:
			b.WriteString(strings.TrimRight(dash, " "))
			b.WriteByte('\n')
			writeSequence(b, item.items, indent+1)
		default:
			b.WriteString(dash)
			b.WriteString(Scalar(item))
			b.WriteByte('\n')
		}
	}
}

// Scalar renders a non-collection value. Strings containing a space or any
// of ":#|&" are wrapped in double quotes as-is; embedded quotes are not
// escaped.
func Scalar(v Value) string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindString:
		if NeedsQuote(v.str) {
			return `"` + v.str + `"`
		}
		return v.str
	default:
		return ""
	}
}

func NeedsQuote(s string) bool {
	return strings.ContainsAny(s, ":#|& ")
}

func pad(indent int) string {
	return strings.Repeat(indentUnit, indent)
}
