package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/vless2clash/internal/sub/vless"
)

func mustRender(t *testing.T, link string) string {
	t.Helper()
	l, err := vless.Parse(link)
	require.NoError(t, err)
	out, err := RenderClash([]vless.ParsedLink{l})
	require.NoError(t, err)
	return out
}

// assertInOrder checks that every line in want appears in out, in order.
func assertInOrder(t *testing.T, out string, want ...string) {
	t.Helper()
	lines := strings.Split(out, "\n")
	i := 0
	for _, w := range want {
		for i < len(lines) && strings.TrimSpace(lines[i]) != w {
			i++
		}
		if i == len(lines) {
			t.Fatalf("line %q missing or out of order in:\n%s", w, out)
		}
		i++
	}
}

func TestRenderClash_RealityScenario(t *testing.T) {
	out := mustRender(t, "vless://abc-123@203.0.113.45:8443?encryption=none&flow=xtls-rprx-vision&security=reality&sni=cloudflare.com&fp=chrome&pbk=PBKVAL&sid=SIDVAL&type=tcp#MyNode")

	want := strings.Join([]string{
		"proxies:",
		"  - type: vless",
		"    name: MyNode",
		"    server: 203.0.113.45",
		"    port: 8443",
		"    uuid: abc-123",
		"    network: tcp",
		"    servername: cloudflare.com",
		"    tls: true",
		"    encryption: none",
		"    reality-opts:",
		"      public-key: PBKVAL",
		"      short-id: SIDVAL",
		"    client-fingerprint: chrome",
		"    flow: xtls-rprx-vision",
		"",
	}, "\n")
	if diff := cmp.Diff(strings.Split(want, "\n"), strings.Split(out, "\n")); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, out, "ws-opts")
	assert.NotContains(t, out, "grpc-opts")
}

func TestRenderClash_TLS(t *testing.T) {
	out := mustRender(t, "vless://U@H:443?enc=none&flow=F&security=tls&sni=S&fp=FP#N")
	assertInOrder(t, out, "servername: S", "tls: true", "client-fingerprint: FP", "flow: F")
	assert.NotContains(t, out, "reality-opts")
}

func TestRenderClash_RealityPartialOpts(t *testing.T) {
	out := mustRender(t, "vless://U@H:443?security=reality&sid=SID#N")
	assertInOrder(t, out, "tls: true", "reality-opts:", "short-id: SID")
	assert.NotContains(t, out, "public-key")

	out = mustRender(t, "vless://U@H:443?security=reality#N")
	assert.NotContains(t, out, "reality-opts")
	assert.Contains(t, out, "tls: true")
}

func TestRenderClash_NoQueryDefaults(t *testing.T) {
	out := mustRender(t, "vless://U@H:443#N")
	assert.Contains(t, out, "network: tcp\n")
	assert.Contains(t, out, "encryption: none\n")
	for _, k := range []string{"tls", "servername", "reality-opts", "client-fingerprint", "flow", "ws-opts", "grpc-opts"} {
		assert.NotContains(t, out, k+":", k)
	}
}

func TestRenderClash_SNIWithoutSecurityIgnored(t *testing.T) {
	out := mustRender(t, "vless://U@H:443?sni=S&fp=chrome&security=none#N")
	assert.NotContains(t, out, "servername")
	assert.NotContains(t, out, "client-fingerprint")
	assert.NotContains(t, out, "tls:")
}

func TestRenderClash_WebSocket(t *testing.T) {
	out := mustRender(t, "vless://U@H:443?type=ws&path=%2Fp&headers=%7B%22Host%22%3A%22cdn.example.com%22%7D#N")
	want := strings.Join([]string{
		"proxies:",
		"  - type: vless",
		"    name: N",
		"    server: H",
		"    port: 443",
		"    uuid: U",
		"    network: ws",
		"    encryption: none",
		"    ws-opts:",
		"      path: /p",
		"      headers:",
		"        Host: cdn.example.com",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRenderClash_WebSocketBadHeadersIgnored(t *testing.T) {
	for _, h := range []string{"not-json", "%5B1%2C2%5D", "%22str%22", "%7B%22a%22%3A1%7Dx"} {
		out := mustRender(t, "vless://U@H:443?type=ws&path=/p&headers="+h+"#N")
		assert.Contains(t, out, "ws-opts:\n      path: /p\n", h)
		assert.NotContains(t, out, "headers", h)
	}

	out := mustRender(t, "vless://U@H:443?type=ws&headers=%7B%7D#N")
	assert.Contains(t, out, "network: ws")
	assert.NotContains(t, out, "ws-opts")
}

func TestRenderClash_GRPC(t *testing.T) {
	out := mustRender(t, "vless://U@H:443?type=grpc&serviceName=svc&security=tls#N")
	assertInOrder(t, out, "network: grpc", "tls: true", "grpc-opts:", "grpc-service-name: svc")
	assert.NotContains(t, out, "ws-opts")

	out = mustRender(t, "vless://U@H:443?type=grpc#N")
	assert.Contains(t, out, "network: grpc")
	assert.NotContains(t, out, "grpc-opts")
}

func TestRenderClash_OtherNetworkPassesThrough(t *testing.T) {
	out := mustRender(t, "vless://U@H:443?type=h2&path=/x#N")
	assert.Contains(t, out, "network: h2\n")
	assert.NotContains(t, out, "ws-opts")
	assert.NotContains(t, out, "path")
}

func TestRenderClash_QuotingAndOmission(t *testing.T) {
	out := mustRender(t, "vless://U@H:443?flow=a%26b#My%20Node%3A1")
	assert.Contains(t, out, `name: "My Node:1"`)
	assert.Contains(t, out, `flow: "a&b"`)

	out = mustRender(t, "vless://U@H:443#")
	assert.NotContains(t, out, "name:")
}

func TestRenderClash_ParsesAsYAML(t *testing.T) {
	out := mustRender(t, "vless://abc-123@203.0.113.45:8443?security=reality&sni=cloudflare.com&pbk=P&sid=S&type=ws&path=/ws#Tokyo%20%231")

	var doc struct {
		Proxies []struct {
			Type        string            `yaml:"type"`
			Name        string            `yaml:"name"`
			Port        int               `yaml:"port"`
			TLS         bool              `yaml:"tls"`
			Network     string            `yaml:"network"`
			RealityOpts map[string]string `yaml:"reality-opts"`
			WSOpts      map[string]any    `yaml:"ws-opts"`
		} `yaml:"proxies"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Proxies, 1)
	p := doc.Proxies[0]
	assert.Equal(t, "Tokyo #1", p.Name)
	assert.Equal(t, 8443, p.Port)
	assert.True(t, p.TLS)
	assert.Equal(t, "ws", p.Network)
	assert.Equal(t, "P", p.RealityOpts["public-key"])
	assert.Equal(t, "/ws", p.WSOpts["path"])
}

func TestRenderClash_Deterministic(t *testing.T) {
	l, err := vless.Parse("vless://U@H:443?security=tls&type=ws&path=/p&headers=%7B%22b%22%3A%221%22%2C%22a%22%3A%222%22%7D#N")
	require.NoError(t, err)
	first, err := RenderClash([]vless.ParsedLink{l})
	require.NoError(t, err)
	second, err := RenderClash([]vless.ParsedLink{l})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Less(t, strings.Index(first, "b: "), strings.Index(first, "a: "))
}

func TestRenderClash_Empty(t *testing.T) {
	_, err := RenderClash(nil)
	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RenderError, got %T: %v", err, err)
	}
	if re.AppError.Code != "INVALID_ARGUMENT" {
		t.Fatalf("code=%q, want=%q", re.AppError.Code, "INVALID_ARGUMENT")
	}
}

func TestClashProxy_KeyOrder(t *testing.T) {
	l, err := vless.Parse("vless://U@H:443?type=grpc&serviceName=s&flow=f&fp=c&security=reality&pbk=k&sni=x&encryption=aes#N")
	require.NoError(t, err)
	got := ClashProxy(l).Keys()
	want := []string{"type", "name", "server", "port", "uuid", "network", "servername", "tls", "encryption", "reality-opts", "client-fingerprint", "flow", "grpc-opts"}
	assert.Equal(t, want, got)
}
