package httpapi

import (
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/vless2clash/internal/iplookup"
)

// Options controls HTTP API runtime behavior (timeouts, upstreams, logging).
type Options struct {
	// ConvertTimeout is the hard upper bound for a single conversion request
	// (fetch + parse + render).
	ConvertTimeout time.Duration

	// FetchTimeout is the per-request timeout used for subscription URLs.
	FetchTimeout time.Duration
	// FetchMaxBytes caps a subscription body; 0 keeps the fetch default.
	FetchMaxBytes     int64
	FetchMaxRedirects int // passed to fetch.Options.MaxRedirects as is
	UserAgent         string

	// FetchConcurrency bounds parallel subscription downloads per request.
	FetchConcurrency int

	IPLookupBaseURL string
	IPLookupTimeout time.Duration

	Logger  *zap.Logger
	Metrics *Metrics
}

func (o Options) withDefaults() Options {
	if o.ConvertTimeout <= 0 {
		o.ConvertTimeout = 60 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = 4
	}
	if o.IPLookupBaseURL == "" {
		o.IPLookupBaseURL = iplookup.DefaultBaseURL
	}
	if o.IPLookupTimeout <= 0 {
		o.IPLookupTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}
	return o
}
