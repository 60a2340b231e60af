package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/John-Robertt/vless2clash/internal/fetch"
	"github.com/John-Robertt/vless2clash/internal/iplookup"
)

// server holds the per-handler dependencies shared by all routes.
type server struct {
	opt     Options
	log     *zap.Logger
	metrics *Metrics
	ip      *iplookup.Client
}

func newServer(opt Options) *server {
	opt = opt.withDefaults()
	return &server{
		opt:     opt,
		log:     opt.Logger,
		metrics: opt.Metrics,
		ip: &iplookup.Client{
			BaseURL: opt.IPLookupBaseURL,
			Fetch: fetch.Options{
				Timeout:   opt.IPLookupTimeout,
				UserAgent: opt.UserAgent,
			},
		},
	}
}

func (s *server) subFetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:      s.opt.FetchTimeout,
		MaxBytes:     s.opt.FetchMaxBytes,
		MaxRedirects: s.opt.FetchMaxRedirects,
		UserAgent:    s.opt.UserAgent,
	}
}

func NewMux() *http.ServeMux {
	return NewMuxWithOptions(Options{})
}

func NewMuxWithOptions(opt Options) *http.ServeMux {
	return newServer(opt).routes()
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /sub", s.handleSub)
	mux.HandleFunc("POST /api/convert", s.handleConvert)
	mux.HandleFunc("GET /api/ip-lookup", s.handleIPLookup)
	mux.HandleFunc("GET /api/uuid", s.handleUUID)
	return mux
}
