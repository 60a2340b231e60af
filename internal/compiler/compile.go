package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/vless2clash/internal/model"
	"github.com/John-Robertt/vless2clash/internal/sub/vless"
)

type CompileError struct {
	AppError model.AppError
	Cause    error
}

func (e *CompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// reservedNames are built-in Clash policies a proxy must not shadow.
var reservedNames = map[string]struct{}{
	"DIRECT": {},
	"REJECT": {},
}

// NormalizeLinks prepares links for a multi-proxy document:
//
//  1. drop exact duplicates (first occurrence wins)
//  2. give every entry a unique, non-empty name
//
// Input order is kept; Clash shows proxies in document order.
func NormalizeLinks(in []vless.ParsedLink) ([]vless.ParsedLink, error) {
	if len(in) == 0 {
		return nil, &CompileError{
			AppError: model.AppError{
				Code:    "SUB_PARSE_ERROR",
				Message: "no links to convert",
				Stage:   "compile",
			},
		}
	}

	seen := make(map[string]struct{}, len(in))
	deduped := make([]vless.ParsedLink, 0, len(in))
	for _, l := range in {
		if strings.ContainsAny(l.Name, "\r\n\x00") {
			return nil, &CompileError{
				AppError: model.AppError{
					Code:    "SUB_PARSE_ERROR",
					Message: "proxy name contains control characters",
					Stage:   "compile",
					Snippet: l.Name,
				},
			}
		}
		key := dedupKey(l)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, l)
	}

	used := make(map[string]struct{}, len(deduped))
	for i := range deduped {
		base := strings.TrimSpace(deduped[i].Name)
		if base == "" {
			base = deduped[i].Host + ":" + strconv.Itoa(deduped[i].Port)
		}

		name := base
		if _, reserved := reservedNames[name]; reserved {
			name = ""
		}
		if name != "" {
			if _, ok := used[name]; ok {
				name = ""
			}
		}
		if name == "" {
			// Pick base-N starting from 2.
			for n := 2; ; n++ {
				try := fmt.Sprintf("%s-%d", base, n)
				if _, ok := used[try]; ok {
					continue
				}
				name = try
				break
			}
		}

		deduped[i].Name = name
		used[name] = struct{}{}
	}
	return deduped, nil
}

// dedupKey identifies a proxy endpoint: uuid, host (case-insensitive), port
// and params. The name is not part of it. Fields are quoted so separators
// inside values cannot collide.
func dedupKey(l vless.ParsedLink) string {
	var b strings.Builder
	b.WriteString(strconv.Quote(l.UUID))
	b.WriteString(strconv.Quote(strings.ToLower(l.Host)))
	b.WriteString(strconv.Itoa(l.Port))
	for _, kv := range l.Params {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(kv.Key))
		b.WriteString(strconv.Quote(kv.Value))
	}
	return b.String()
}
