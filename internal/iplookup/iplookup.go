// Package iplookup resolves geolocation and network ownership for an IP
// address through an ip-api.com compatible endpoint.
package iplookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/vless2clash/internal/fetch"
	"github.com/John-Robertt/vless2clash/internal/model"
)

const (
	DefaultBaseURL = "http://ip-api.com"

	stage  = "ip_lookup"
	fields = "status,message,country,countryCode,region,regionName,city,zip,lat,lon,timezone,isp,org,as,query"
)

// Info is the normalized lookup result served to clients.
type Info struct {
	IP           string   `json:"ip"`
	Country      string   `json:"country"`
	CountryCode  string   `json:"countryCode"`
	Region       string   `json:"region"`
	RegionCode   string   `json:"regionCode"`
	City         string   `json:"city"`
	PostalCode   string   `json:"postalCode"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Timezone     string   `json:"timezone"`
	ISP          string   `json:"isp"`
	Organization string   `json:"organization"`
	ASN          string   `json:"asn"`
}

type upstreamResponse struct {
	Query       string  `json:"query"`
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
}

type LookupError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *LookupError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *LookupError) Unwrap() error { return e.Cause }

type Client struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	Fetch   fetch.Options
}

// Lookup queries ip. An empty ip asks the upstream about the caller's own
// address.
func (c *Client) Lookup(ctx context.Context, ip string) (*Info, error) {
	base := DefaultBaseURL
	if c != nil && c.BaseURL != "" {
		base = strings.TrimRight(c.BaseURL, "/")
	}
	var opt fetch.Options
	if c != nil {
		opt = c.Fetch
	}

	ip = strings.TrimSpace(ip)
	target := base + "/json/"
	if ip != "" {
		target += url.PathEscape(ip)
	}
	target += "?fields=" + fields

	body, err := fetch.FetchTextWithOptions(ctx, fetch.KindIPLookup, target, opt)
	if err != nil {
		return nil, err
	}

	var resp upstreamResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, &LookupError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "IP_LOOKUP_FAILED",
				Message: "upstream returned malformed JSON",
				Stage:   stage,
				Snippet: truncate(body, 200),
			},
			Cause: err,
		}
	}

	if resp.Status == "fail" {
		msg := resp.Message
		if msg == "" {
			msg = "IP lookup failed"
		}
		return nil, &LookupError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "IP_LOOKUP_FAILED",
				Message: msg,
				Stage:   stage,
				Snippet: ip,
			},
		}
	}

	return resp.info(), nil
}

func (r upstreamResponse) info() *Info {
	region := r.RegionName
	if region == "" {
		region = r.Region
	}
	return &Info{
		IP:           r.Query,
		Country:      r.Country,
		CountryCode:  r.CountryCode,
		Region:       region,
		RegionCode:   r.Region,
		City:         r.City,
		PostalCode:   r.Zip,
		Latitude:     nonZero(r.Lat),
		Longitude:    nonZero(r.Lon),
		Timezone:     r.Timezone,
		ISP:          r.ISP,
		Organization: r.Org,
		ASN:          r.AS,
	}
}

// nonZero maps the upstream's missing coordinate (0) to null.
func nonZero(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
