package render

import (
	"github.com/John-Robertt/vless2clash/internal/sub/vless"
	"github.com/John-Robertt/vless2clash/internal/yamlenc"
)

const (
	securityTLS     = "tls"
	securityReality = "reality"

	networkTCP  = "tcp"
	networkWS   = "ws"
	networkGRPC = "grpc"
)

// ClashProxy maps a parsed link onto a Clash (mihomo) vless proxy entry.
// Key order is the emission order. Missing or unknown parameters are left
// out; the mapping never fails.
func ClashProxy(link vless.ParsedLink) *yamlenc.Map {
	p := link.Params
	security := p.Value("security")
	secure := security == securityTLS || security == securityReality

	network := p.Value("type")
	if network == "" {
		network = networkTCP
	}

	m := yamlenc.NewMap().
		Set("type", yamlenc.String("vless")).
		Set("name", yamlenc.String(link.Name)).
		Set("server", yamlenc.String(link.Host)).
		Set("port", yamlenc.Int(int64(link.Port))).
		Set("uuid", yamlenc.String(link.UUID)).
		Set("network", yamlenc.String(network))

	sni := p.Value("sni")
	m.SetIf(sni != "" && secure, "servername", yamlenc.String(sni))
	m.SetIf(secure, "tls", yamlenc.Bool(true))

	encryption := p.Value("encryption")
	if encryption == "" {
		encryption = "none"
	}
	m.Set("encryption", yamlenc.String(encryption))

	if security == securityReality {
		opts := yamlenc.NewMap()
		opts.SetIf(p.Value("pbk") != "", "public-key", yamlenc.String(p.Value("pbk")))
		opts.SetIf(p.Value("sid") != "", "short-id", yamlenc.String(p.Value("sid")))
		m.SetIf(opts.Len() > 0, "reality-opts", yamlenc.Mapping(opts))
	}

	fp := p.Value("fp")
	m.SetIf(fp != "" && secure, "client-fingerprint", yamlenc.String(fp))

	flow := p.Value("flow")
	m.SetIf(flow != "", "flow", yamlenc.String(flow))

	switch p.Value("type") {
	case networkWS:
		// network keeps its original position; only the value changes.
		m.Set("network", yamlenc.String(networkWS))
		opts := yamlenc.NewMap()
		opts.SetIf(p.Value("path") != "", "path", yamlenc.String(p.Value("path")))
		if headers, ok := wsHeaders(p.Value("headers")); ok {
			opts.Set("headers", headers)
		}
		m.SetIf(opts.Len() > 0, "ws-opts", yamlenc.Mapping(opts))
	case networkGRPC:
		m.Set("network", yamlenc.String(networkGRPC))
		opts := yamlenc.NewMap()
		opts.SetIf(p.Value("serviceName") != "", "grpc-service-name", yamlenc.String(p.Value("serviceName")))
		m.SetIf(opts.Len() > 0, "grpc-opts", yamlenc.Mapping(opts))
	}

	return m
}

// wsHeaders decodes the JSON object carried in the headers parameter.
// Anything that is not a JSON object is ignored.
func wsHeaders(raw string) (yamlenc.Value, bool) {
	if raw == "" {
		return yamlenc.Value{}, false
	}
	v, err := yamlenc.FromJSON([]byte(raw))
	if err != nil || v.Kind() != yamlenc.KindMapping {
		return yamlenc.Value{}, false
	}
	return v, true
}
