package seo

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const pingTimeout = 10 * time.Second

// EngineStatus reports the outcome of one ping.
type EngineStatus struct {
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"status_code,omitempty"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// PingReport is returned by a sitemap ping run.
type PingReport struct {
	SitemapURL string         `json:"sitemap_url"`
	Engines    []EngineStatus `json:"engines"`
}

type callObserver interface {
	ObserveCall(provider, operation string, started time.Time, err error)
}

// Pinger notifies search engines that the sitemap changed.
type Pinger struct {
	http      *resty.Client
	endpoints []string
	observer  callObserver
}

// NewPinger builds a pinger. Each endpoint is expected to end with the
// query parameter that takes the sitemap URL, e.g. "...ping?sitemap=".
func NewPinger(endpoints []string, observer callObserver) *Pinger {
	clean := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return &Pinger{
		http:      resty.New().SetTimeout(pingTimeout).SetRetryCount(0),
		endpoints: clean,
		observer:  observer,
	}
}

// Ping calls every endpoint in turn. A failing engine does not stop the others.
func (p *Pinger) Ping(ctx context.Context, sitemapURL string) PingReport {
	report := PingReport{SitemapURL: sitemapURL, Engines: make([]EngineStatus, 0, len(p.endpoints))}
	escaped := url.QueryEscape(sitemapURL)
	for _, endpoint := range p.endpoints {
		status := EngineStatus{Endpoint: endpoint}
		started := time.Now()
		resp, err := p.http.R().SetContext(ctx).Get(endpoint + escaped)
		switch {
		case err != nil:
			status.Error = err.Error()
		case resp.IsError():
			status.StatusCode = resp.StatusCode()
			status.Error = resp.Status()
		default:
			status.StatusCode = resp.StatusCode()
			status.OK = true
		}
		if p.observer != nil {
			var callErr error
			if !status.OK {
				callErr = errPingFailed
			}
			p.observer.ObserveCall("search_engine", "ping", started, callErr)
		}
		report.Engines = append(report.Engines, status)
	}
	return report
}
