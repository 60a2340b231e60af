// Package fetch downloads remote text resources (subscriptions and IP lookup
// responses) with bounded size, redirects and time.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/vless2clash/internal/model"
)

type Kind int

const (
	KindSubscription Kind = iota
	KindIPLookup
)

func (k Kind) Stage() string {
	switch k {
	case KindSubscription:
		return "fetch_sub"
	case KindIPLookup:
		return "fetch_ip"
	default:
		return "fetch"
	}
}

func (k Kind) defaultMaxBytes() int64 {
	switch k {
	case KindSubscription:
		return 5 * 1024 * 1024
	case KindIPLookup:
		return 64 * 1024
	default:
		return 1 * 1024 * 1024
	}
}

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxRedirects = 5
	defaultUserAgent    = "vless2clash"

	// NoRedirects as Options.MaxRedirects makes any redirect a failure.
	NoRedirects = -1
)

type Options struct {
	Timeout      time.Duration // default 15s
	MaxBytes     int64         // default per kind
	MaxRedirects int           // default 5; NoRedirects refuses any redirect
	UserAgent    string        // default "vless2clash"

	// Transport overrides http.DefaultTransport (tests).
	Transport http.RoundTripper
}

type FetchError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

var (
	errTooManyRedirects   = errors.New("too many redirects")
	errRedirectBadScheme  = errors.New("redirect target scheme is not http/https")
	errInvalidURLOrScheme = errors.New("invalid url or scheme")
)

// request carries the per-call state shared by the error constructors.
type request struct {
	stage  string
	rawURL string
}

func (r request) fail(status int, code, msg string, cause error) *FetchError {
	return &FetchError{
		Status: status,
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   r.stage,
			URL:     r.rawURL,
		},
		Cause: cause,
	}
}

func (r request) timeout(cause error) *FetchError {
	return r.fail(http.StatusGatewayTimeout, "FETCH_TIMEOUT", "fetching remote resource timed out", cause)
}

func FetchText(ctx context.Context, kind Kind, rawURL string) (string, error) {
	return FetchTextWithOptions(ctx, kind, rawURL, Options{})
}

func FetchTextWithOptions(ctx context.Context, kind Kind, rawURL string, opt Options) (string, error) {
	r := request{stage: kind.Stage(), rawURL: rawURL}

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxRedirects := opt.MaxRedirects
	switch {
	case maxRedirects == 0:
		maxRedirects = defaultMaxRedirects
	case maxRedirects < 0:
		maxRedirects = 0
	}
	maxBytes := opt.MaxBytes
	if maxBytes == 0 {
		maxBytes = kind.defaultMaxBytes()
	}
	if maxBytes <= 0 {
		return "", r.fail(http.StatusBadRequest, "INVALID_ARGUMENT", "response size limit must be positive", nil)
	}
	ua := opt.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	transport := opt.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	u, err := url.Parse(rawURL)
	if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", r.fail(http.StatusBadRequest, "INVALID_ARGUMENT", "only http/https URLs are allowed",
			errors.Join(errInvalidURLOrScheme, err))
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// len(via) is the number of redirects followed so far, plus one.
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", r.fail(http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request URL", err)
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		switch {
		case errors.Is(err, errTooManyRedirects):
			return "", r.fail(http.StatusBadGateway, "FETCH_FAILED",
				fmt.Sprintf("too many redirects (>%d)", maxRedirects), err)
		case errors.Is(err, errRedirectBadScheme):
			return "", r.fail(http.StatusBadRequest, "INVALID_ARGUMENT",
				"redirect target must be http/https", err)
		case isTimeout(err):
			return "", r.timeout(err)
		default:
			return "", r.fail(http.StatusBadGateway, "FETCH_FAILED", "fetching remote resource failed", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", r.fail(http.StatusBadGateway, "FETCH_FAILED",
			fmt.Sprintf("upstream returned non-2xx status: %d", resp.StatusCode), nil)
	}

	// Read at most maxBytes+1 to detect overflow deterministically.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return "", r.timeout(err)
		}
		return "", r.fail(http.StatusBadGateway, "FETCH_FAILED", "reading upstream response failed", err)
	}
	if int64(len(body)) > maxBytes {
		return "", r.fail(http.StatusUnprocessableEntity, "TOO_LARGE",
			fmt.Sprintf("remote resource too large (>%d bytes)", maxBytes), nil)
	}
	if !utf8.Valid(body) {
		return "", r.fail(http.StatusUnprocessableEntity, "FETCH_INVALID_UTF8",
			"remote resource is not valid UTF-8 text", nil)
	}

	return string(body), nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
