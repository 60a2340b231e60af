package httpapi

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultFileBase = "clash"
	defaultFileExt  = ".yaml"
	maxFileNameLen  = 200
)

func outputFileName(raw string) (string, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		base = defaultFileBase
	}
	if strings.ContainsAny(base, "\r\n\x00") {
		return "", requestError("INVALID_ARGUMENT", "filename contains control characters", "")
	}
	if strings.Contains(base, "/") || strings.Contains(base, "\\") {
		return "", requestError("INVALID_ARGUMENT", "filename must not contain path separators", "")
	}
	if len(base) > maxFileNameLen {
		return "", requestError("INVALID_ARGUMENT", "filename is too long", fmt.Sprintf("max=%d bytes", maxFileNameLen))
	}

	if !hasExt(base) {
		base += defaultFileExt
	}
	return base, nil
}

func hasExt(name string) bool {
	i := strings.LastIndexByte(name, '.')
	return i > 0 && i < len(name)-1
}

// contentDispositionAttachment carries both filename and filename* (RFC 6266,
// RFC 5987) for UTF-8 names.
func contentDispositionAttachment(filename string) string {
	escaped := strings.ReplaceAll(filename, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", escaped, pctEncode(filename))
}

func pctEncode(s string) string {
	// QueryEscape uses '+' for spaces; rewrite to %20.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
