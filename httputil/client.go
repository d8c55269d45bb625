package httputil

import (
	"net/http"
	"net/url"

	"github.com/silvestred/nba-team-ats-trends-scrape/config"
)

// NewScrapingClient builds the HTTP client used for outbound source fetches.
// When a proxy is configured all traffic routes through it; the client
// timeout covers the whole exchange including body read.
func NewScrapingClient(cfg *config.FetchConfig) *http.Client {
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			client.Transport = &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			}
		}
	}

	return client
}
