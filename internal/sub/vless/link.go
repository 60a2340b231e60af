package vless

import "github.com/John-Robertt/vless2clash/internal/model"

// DefaultName is the display name used when a link carries no fragment.
const DefaultName = "VLESS"

// ParsedLink is the structured form of one vless:// URI.
type ParsedLink struct {
	UUID string
	Host string
	// Port is taken as written; it is not range checked.
	Port int
	Name string

	Params Params
}

// Params holds decoded query parameters in order of first appearance.
// A repeated key keeps its first position and takes the last value.
type Params []model.KV

func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Value returns the value for key, or "" when absent.
func (p Params) Value(key string) string {
	v, _ := p.Get(key)
	return v
}

func (p Params) Keys() []string {
	out := make([]string, 0, len(p))
	for _, kv := range p {
		out = append(out, kv.Key)
	}
	return out
}

func (p Params) set(key, value string) Params {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, model.KV{Key: key, Value: value})
}
