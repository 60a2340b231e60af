package vless

import (
	"strings"
	"testing"
)

func FuzzParse(f *testing.F) {
	seed := []string{
		"",
		"vless://u@h:443",
		realityLink,
		"vless://u@h:443?type=ws&path=%2F&headers=%7B%7D#ws",
		"vless://u@h:443?=&&a=#%",
		"vless://a@b@c:1?x=y=z",
	}
	for _, s := range seed {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, in string) {
		link, err := Parse(in)
		if err != nil {
			return
		}
		if !strings.HasPrefix(in, "vless://") {
			t.Fatalf("accepted input without scheme: %q", in)
		}
		if link.UUID == "" || link.Host == "" {
			t.Fatalf("empty uuid/host on success: %+v", link)
		}
		if link.Port < 0 {
			t.Fatalf("negative port: %d", link.Port)
		}
		seen := make(map[string]bool, len(link.Params))
		for _, kv := range link.Params {
			if kv.Key == "" || kv.Value == "" {
				t.Fatalf("empty param key/value: %+v", kv)
			}
			if seen[kv.Key] {
				t.Fatalf("duplicate param key %q", kv.Key)
			}
			seen[kv.Key] = true
		}
	})
}
