package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/John-Robertt/vless2clash/internal/model"
)

const (
	realityLink = "vless://abc-123@203.0.113.45:8443?encryption=none&flow=xtls-rprx-vision&security=reality&sni=cloudflare.com&fp=chrome&pbk=PBKVAL&sid=SIDVAL&type=tcp#MyNode"
	wsLink      = "vless://u-2@cdn.example.com:443?security=tls&sni=cdn.example.com&type=ws&path=%2Fws#WS"
)

const realityYAML = `proxies:
  - type: vless
    name: MyNode
    server: 203.0.113.45
    port: 8443
    uuid: abc-123
    network: tcp
    servername: cloudflare.com
    tls: true
    encryption: none
    reality-opts:
      public-key: PBKVAL
      short-id: SIDVAL
    client-fingerprint: chrome
    flow: xtls-rprx-vision
`

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func doGET(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, h, httptest.NewRequest(http.MethodGet, target, nil))
}

func doPOSTJSON(t *testing.T, h http.Handler, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return serve(t, h, req)
}

func newPOST(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.AppError {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nbody=%q", err, rr.Body.String())
	}
	return resp.Error
}

// subUpstream serves path -> body; unknown paths return 404.
func subUpstream(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range bodies {
		mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}
