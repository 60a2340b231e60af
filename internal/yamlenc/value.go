// Package yamlenc renders ordered, loosely typed values as the small YAML
// subset Clash proxy entries need: block mappings, sequences of mappings
// with the first key inlined after the dash, and bare or double-quoted
// scalars. It is not a general YAML emitter.
package yamlenc

import "strconv"

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindBool
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a tagged union. The zero Value is null.
type Value struct {
	kind  Kind
	str   string
	num   int64
	flag  bool
	m     *Map
	items []Value
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Int(n int64) Value { return Value{kind: KindInt, num: n} }

func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Mapping wraps m. A nil m is null.
func Mapping(m *Map) Value {
	if m == nil {
		return Value{}
	}
	return Value{kind: KindMapping, m: m}
}

func Seq(items ...Value) Value {
	return Value{kind: KindSequence, items: items}
}

func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload; it is "" for non-string kinds.
func (v Value) Str() string { return v.str }

func (v Value) IntVal() int64 { return v.num }

func (v Value) BoolVal() bool { return v.flag }

// Map returns the mapping payload or nil.
func (v Value) Map() *Map { return v.m }

// Items returns the sequence payload or nil.
func (v Value) Items() []Value { return v.items }

// omitted reports whether v renders nothing: null, the empty string, and
// collections with no surviving members.
func (v Value) omitted() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindMapping:
		return len(v.m.live()) == 0
	case KindSequence:
		for _, item := range v.items {
			if !item.omitted() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

type Entry struct {
	Key   string
	Value Value
}

// Map is an insertion-ordered mapping. Emission order is the order keys
// were first set.
type Map struct {
	entries []Entry
}

func NewMap() *Map { return &Map{} }

// Set replaces the value of an existing key in place, or appends a new
// entry. It returns m so calls can be chained.
func (m *Map) Set(key string, v Value) *Map {
	for i := range m.entries {
		if m.entries[i].Key == key {
			m.entries[i].Value = v
			return m
		}
	}
	m.entries = append(m.entries, Entry{Key: key, Value: v})
	return m
}

// SetIf calls Set only when cond holds.
func (m *Map) SetIf(cond bool, key string, v Value) *Map {
	if cond {
		m.Set(key, v)
	}
	return m
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Key)
	}
	return out
}

// Entries returns a copy of the entries in order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// live returns the entries that survive omission filtering.
func (m *Map) live() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Value.omitted() {
			continue
		}
		out = append(out, e)
	}
	return out
}
