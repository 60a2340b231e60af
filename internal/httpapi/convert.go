package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/vless2clash/internal/convert"
	"github.com/John-Robertt/vless2clash/internal/fetch"
	"github.com/John-Robertt/vless2clash/internal/sub/vless"
)

const maxConvertBodyBytes = 1 << 20

type convertRequest struct {
	Links    []string // inline vless:// links
	Subs     []string // subscription URLs
	FileName string   // only for GET /sub
}

type convertRequestJSON struct {
	Link  string   `json:"link"`
	Links []string `json:"links"`
	Subs  []string `json:"subs"`
}

func (s *server) handleSub(w http.ResponseWriter, r *http.Request) {
	req, err := parseConvertGET(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fileName, err := outputFileName(req.FileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.runConvert(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", contentDispositionAttachment(fileName))
	WriteYAML(w, http.StatusOK, out)
}

func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxConvertBodyBytes)
	req, err := parseConvertPOST(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.runConvert(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteYAML(w, http.StatusOK, out)
}

func (s *server) runConvert(ctx context.Context, req convertRequest) (out string, err error) {
	defer func() { s.metrics.incConversion(err == nil) }()

	// Keep a hard upper bound so handlers don't hang forever if upstream misbehaves.
	ctx, cancel := context.WithTimeout(ctx, s.opt.ConvertTimeout)
	defer cancel()

	// A lone link keeps single-link semantics (no name rewriting).
	if len(req.Links) == 1 && len(req.Subs) == 0 {
		return convert.Link(req.Links[0])
	}

	links := make([]vless.ParsedLink, 0, len(req.Links))
	for i, raw := range req.Links {
		l, err := vless.Parse(raw)
		if err != nil {
			var pe *vless.ParseError
			if errors.As(err, &pe) {
				pe.AppError.Line = i + 1
			}
			return "", err
		}
		links = append(links, l)
	}

	fromSubs, err := s.fetchAndParseSubs(ctx, req.Subs)
	if err != nil {
		return "", err
	}
	links = append(links, fromSubs...)

	return convert.Links(links)
}

// fetchAndParseSubs downloads every distinct URL concurrently and returns
// the links in input order.
func (s *server) fetchAndParseSubs(ctx context.Context, subURLs []string) ([]vless.ParsedLink, error) {
	uniq := dedupStrings(subURLs)
	if len(uniq) == 0 {
		return nil, nil
	}

	results := make([][]vless.ParsedLink, len(uniq))
	opt := s.subFetchOptions()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opt.FetchConcurrency)
	for i, u := range uniq {
		g.Go(func() error {
			text, err := fetch.FetchTextWithOptions(gctx, fetch.KindSubscription, u, opt)
			if err != nil {
				return err
			}
			links, err := vless.ParseSubscriptionText(u, text)
			if err != nil {
				return err
			}
			results[i] = links
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []vless.ParsedLink
	for _, links := range results {
		out = append(out, links...)
	}
	return out, nil
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func parseConvertGET(r *http.Request) (convertRequest, error) {
	q := r.URL.Query()
	for key := range q {
		switch key {
		case "link", "url", "filename":
		default:
			return convertRequest{}, requestError("INVALID_ARGUMENT", fmt.Sprintf("unsupported query parameter: %s", key), "")
		}
	}

	links, err := nonEmpty("link", q["link"])
	if err != nil {
		return convertRequest{}, err
	}
	subs, err := nonEmpty("url", q["url"])
	if err != nil {
		return convertRequest{}, err
	}
	if len(links) == 0 && len(subs) == 0 {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "missing link or url parameter", "expected: link=vless://... or url=<subscription>")
	}

	fileName, err := singleQuery(q, "filename", false)
	if err != nil {
		return convertRequest{}, err
	}
	return convertRequest{Links: links, Subs: subs, FileName: fileName}, nil
}

func parseConvertPOST(r *http.Request) (convertRequest, error) {
	var body convertRequestJSON
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return convertRequest{}, apiError(http.StatusRequestEntityTooLarge, requestAppError("TOO_LARGE", "request body too large"), err)
		}
		return convertRequest{}, requestError("INVALID_ARGUMENT", "invalid JSON body", err.Error())
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body must contain a single object", "")
	} else if !errors.Is(err, io.EOF) {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "invalid JSON body", err.Error())
	}

	raw := body.Links
	if strings.TrimSpace(body.Link) != "" {
		raw = append([]string{body.Link}, raw...)
	}
	links, err := nonEmpty("links", raw)
	if err != nil {
		return convertRequest{}, err
	}
	subs, err := nonEmpty("subs", body.Subs)
	if err != nil {
		return convertRequest{}, err
	}
	if len(links) == 0 && len(subs) == 0 {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "nothing to convert", "expected: link, links or subs")
	}
	return convertRequest{Links: links, Subs: subs}, nil
}

// nonEmpty trims every value and rejects blanks.
func nonEmpty(field string, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, requestError("INVALID_ARGUMENT", fmt.Sprintf("%s must not be empty", field), "")
		}
		out = append(out, v)
	}
	return out, nil
}

func singleQuery(q url.Values, key string, required bool) (string, error) {
	values, ok := q[key]
	if !ok || len(values) == 0 {
		if required {
			return "", requestError("INVALID_ARGUMENT", fmt.Sprintf("missing %s parameter", key), "")
		}
		return "", nil
	}
	if len(values) != 1 {
		return "", requestError("INVALID_ARGUMENT", fmt.Sprintf("%s parameter must appear once", key), "")
	}
	return values[0], nil
}
