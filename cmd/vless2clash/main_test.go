package main

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveHealthzURL_FromListenAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"127.0.0.1:25500", "http://127.0.0.1:25500/healthz"},
		{"0.0.0.0:25500", "http://127.0.0.1:25500/healthz"},
		{":25500", "http://127.0.0.1:25500/healthz"},
		{"25500", "http://127.0.0.1:25500/healthz"},
		{"[::]:25500", "http://127.0.0.1:25500/healthz"},
		{"http://127.0.0.1:25500", "http://127.0.0.1:25500/healthz"},
		{"http://127.0.0.1:25500/healthz", "http://127.0.0.1:25500/healthz"},
	}
	for _, tt := range tests {
		got, err := deriveHealthzURL(tt.in)
		if err != nil {
			t.Fatalf("deriveHealthzURL(%q) unexpected err: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("deriveHealthzURL(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeriveHealthzURL_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "host:"} {
		if _, err := deriveHealthzURL(in); err == nil {
			t.Fatalf("deriveHealthzURL(%q) expected error", in)
		}
	}
}

func TestRunHealthcheck_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	defer ts.Close()

	if err := runHealthcheck(ts.URL+"/healthz", 200*time.Millisecond); err != nil {
		t.Fatalf("runHealthcheck unexpected err: %v", err)
	}
}

func TestRunHealthcheck_StatusNotOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	err := runHealthcheck(ts.URL, 200*time.Millisecond)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("err=%q, want contains %q", err.Error(), "unexpected status")
	}
}

// execute runs the CLI with args and stdin, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Keep test output clean and independent of the caller's environment.
	t.Setenv("V2C_LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertCmd_SingleLink(t *testing.T) {
	out, err := execute(t, "", "convert", "vless://u@example.com:443?security=tls&sni=example.com#HK")
	require.NoError(t, err)

	want := `proxies:
  - type: vless
    name: HK
    server: example.com
    port: 443
    uuid: u
    network: tcp
    servername: example.com
    tls: true
    encryption: none
`
	assert.Equal(t, want, out)
}

func TestConvertCmd_Stdin(t *testing.T) {
	list := "vless://u@a.com:1#A\nvless://u@b.com:2#A\n"
	out, err := execute(t, base64.StdEncoding.EncodeToString([]byte(list)), "convert", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "    name: A\n")
	assert.Contains(t, out, "    name: A-2\n")
}

func TestConvertCmd_StdinSingleLinkMatchesArgument(t *testing.T) {
	for _, link := range []string{
		"vless://u@h.com:1#",
		"vless://u@h.com:1#%20Sp%20",
		"vless://u@h.com:1?type=ws&path=%2Fws#HK",
	} {
		t.Run(link, func(t *testing.T) {
			fromArg, err := execute(t, "", "convert", link)
			require.NoError(t, err)
			fromStdin, err := execute(t, "  "+link+"  \n", "convert")
			require.NoError(t, err)
			assert.Equal(t, fromArg, fromStdin)
		})
	}

	out, err := execute(t, "vless://u@h.com:1#\n", "convert", "-")
	require.NoError(t, err)
	assert.NotContains(t, out, "name:")
}

func TestConvertCmd_Subscription(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("vless://s@sub.example.com:443#Sub\n"))
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "out.yaml")
	out, err := execute(t, "", "convert", "--url", ts.URL, "-o", path, "vless://u@a.com:1#Inline")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	require.Contains(t, body, "name: Inline")
	require.Contains(t, body, "name: Sub")
	assert.Less(t, strings.Index(body, "name: Inline"), strings.Index(body, "name: Sub"))
}

func TestConvertCmd_InvalidLink(t *testing.T) {
	_, err := execute(t, "", "convert", "vless://broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUB_PARSE_ERROR")
}

func TestUUIDCmd(t *testing.T) {
	out, err := execute(t, "", "uuid", "-n", "3")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 3)
}

func TestIPLookupCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","query":"9.9.9.9","country":"Switzerland"}`))
	}))
	defer ts.Close()
	t.Setenv("V2C_IP_LOOKUP_BASE_URL", ts.URL)

	out, err := execute(t, "", "ip-lookup", "9.9.9.9")
	require.NoError(t, err)
	assert.Contains(t, out, `"ip": "9.9.9.9"`)
	assert.Contains(t, out, `"country": "Switzerland"`)
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, err := execute(t, "", "--log-format", "xml", "uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}
