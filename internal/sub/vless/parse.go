package vless

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/vless2clash/internal/model"
)

const (
	Scheme = "vless"

	stageParseLink = "parse_link"
	stageParseSub  = "parse_sub"

	msgInvalidLink = "invalid link"
)

// linkPattern captures userinfo, host, port, "?query" and "#fragment".
var linkPattern = regexp.MustCompile(`^vless://([^@]+)@([^:]+):(\d+)(\?[^#]*)?(#.*)?$`)

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse turns a single vless:// URI into a ParsedLink. It is all or
// nothing: any shape mismatch yields a *ParseError and a zero ParsedLink.
func Parse(uri string) (ParsedLink, error) {
	return parseLink("", 0, uri)
}

func parseLink(sourceURL string, lineNo int, s string) (ParsedLink, error) {
	stage := stageParseLink
	if sourceURL != "" || lineNo > 0 {
		stage = stageParseSub
	}
	fail := func(hint string, cause error) (ParsedLink, error) {
		return ParsedLink{}, newParseError(stage, sourceURL, lineNo, truncateSnippet(s, 200), "SUB_PARSE_ERROR", msgInvalidLink, hint, cause)
	}

	m := linkPattern.FindStringSubmatch(s)
	if m == nil {
		return fail("expected: vless://<uuid>@<host>:<port>[?query][#name]", nil)
	}
	userInfo, host, portStr, query, fragment := m[1], m[2], m[3], m[4], m[5]

	port, err := strconv.ParseUint(portStr, 10, 31)
	if err != nil {
		return fail("port is not a decimal integer", err)
	}

	name := DefaultName
	if fragment != "" {
		decoded, err := decodeComponent(fragment[1:])
		if err != nil {
			return fail("malformed percent-encoding in #name", err)
		}
		name = decoded
	}

	var params Params
	if query != "" {
		params, err = parseQuery(query[1:])
		if err != nil {
			return fail("malformed percent-encoding in query", err)
		}
	}

	return ParsedLink{
		UUID:   userInfo,
		Host:   host,
		Port:   int(port),
		Name:   name,
		Params: params,
	}, nil
}

// parseQuery splits on '&' and then on the first '='. Segments without '=',
// with an empty key or with an empty value are skipped. Only values are
// percent-decoded.
func parseQuery(query string) (Params, error) {
	var out Params
	for _, part := range strings.Split(query, "&") {
		k, rawV, ok := strings.Cut(part, "=")
		if !ok || k == "" || rawV == "" {
			continue
		}
		v, err := decodeComponent(rawV)
		if err != nil {
			return nil, err
		}
		out = out.set(k, v)
	}
	return out, nil
}

var errInvalidUTF8 = errors.New("percent-encoding decodes to invalid UTF-8")

// decodeComponent percent-decodes s. Escapes that decode to invalid UTF-8
// are rejected along with malformed ones.
func decodeComponent(s string) (string, error) {
	v, err := url.PathUnescape(s)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(v) {
		return "", errInvalidUTF8
	}
	return v, nil
}

// ParseSubscriptionText parses a list of vless:// links, one per line. The
// list may also be base64 encoded as a whole.
func ParseSubscriptionText(sourceURL string, content string) ([]ParsedLink, error) {
	s := stripUTF8BOM(content)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, newParseError(stageParseSub, sourceURL, 0, "", "SUB_PARSE_ERROR", "subscription is empty", "", nil)
	}

	// A raw list always contains the scheme; anything else must decode.
	if strings.Contains(s, Scheme+"://") {
		return parseRawList(sourceURL, s)
	}

	decoded, err := decodeSubscriptionBase64(s)
	if err != nil {
		return nil, newParseError(stageParseSub, sourceURL, 0, truncateSnippet(s, 200), "SUB_BASE64_DECODE_ERROR", "subscription base64 decode failed", "", err)
	}
	decoded = strings.TrimSpace(stripUTF8BOM(decoded))
	if decoded == "" {
		return nil, newParseError(stageParseSub, sourceURL, 0, "", "SUB_PARSE_ERROR", "subscription is empty", "", nil)
	}
	return parseRawList(sourceURL, decoded)
}

func parseRawList(sourceURL, raw string) ([]ParsedLink, error) {
	lines := strings.Split(raw, "\n")
	out := make([]ParsedLink, 0, len(lines))
	for i, line := range lines {
		orig := line
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, Scheme+"://") {
			return nil, newParseError(stageParseSub, sourceURL, i+1, truncateSnippet(orig, 200), "SUB_UNSUPPORTED_SCHEME", "only vless:// links are supported", "expected: vless://...", nil)
		}

		link, err := parseLink(sourceURL, i+1, line)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	if len(out) == 0 {
		return nil, newParseError(stageParseSub, sourceURL, 0, "", "SUB_PARSE_ERROR", "subscription contains no links", "", nil)
	}
	return out, nil
}

func decodeSubscriptionBase64(s string) (string, error) {
	b, err := decodeB64ToBytes(removeSpaceTabCRLF(s))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded subscription is not valid utf-8")
	}
	return string(b), nil
}

func decodeB64ToBytes(s string) ([]byte, error) {
	// Standard alphabet with padding first, then URL-safe, then unpadded.
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func removeSpaceTabCRLF(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func stripUTF8BOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func newParseError(stage, sourceURL string, lineNo int, snippet, code, message, hint string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   stage,
			URL:     sourceURL,
			Line:    lineNo,
			Snippet: snippet,
			Hint:    hint,
		},
		Cause: cause,
	}
}
