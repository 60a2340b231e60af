// Package convert is the end-to-end pipeline: parse VLESS input, map it to
// Clash proxy entries and serialize the YAML document.
package convert

import (
	"strings"

	"github.com/John-Robertt/vless2clash/internal/compiler"
	"github.com/John-Robertt/vless2clash/internal/render"
	"github.com/John-Robertt/vless2clash/internal/sub/vless"
)

// Link converts a single share URI. Blank input yields "" and no error.
func Link(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	link, err := vless.Parse(raw)
	if err != nil {
		return "", err
	}
	return render.RenderClash([]vless.ParsedLink{link})
}

// Links renders several parsed links into one document after deduplicating
// them and making their names unique.
func Links(links []vless.ParsedLink) (string, error) {
	normalized, err := compiler.NormalizeLinks(links)
	if err != nil {
		return "", err
	}
	return render.RenderClash(normalized)
}

// Text converts a newline separated (optionally base64 wrapped) link list.
// sourceURL only annotates errors and may be empty.
func Text(sourceURL, content string) (string, error) {
	links, err := vless.ParseSubscriptionText(sourceURL, content)
	if err != nil {
		return "", err
	}
	return Links(links)
}
