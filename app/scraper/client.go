package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"prix-harvest/app/encoder"
)

// Client is the fetch capability: a resty session whose transport carries
// the Cloudflare bypass round-tripper, since the site serves both the
// sitemap and the page-info API from behind an anti-bot layer.
type Client struct {
	http *resty.Client
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
}

func NewClient(opts Options) (*Client, error) {
	client := resty.New()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &Client{http: client}, nil
}

// FetchSitemap performs the single bulk listing request.
func (c *Client) FetchSitemap(ctx context.Context, url string) ([]byte, error) {
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("sitemap request returned status %d", res.StatusCode())
	}

	slog.Debug("Sitemap fetched", "url", url, "bytes", len(res.Body()))
	return res.Body(), nil
}

// FetchProduct fetches one product document through the page-info API. The
// endpoint is wrapped in a freshly timestamped descriptor and encoded into
// the query key, so the request URL differs on every call by design.
func (c *Client) FetchProduct(ctx context.Context, apiBase, endpoint string) (map[string]any, error) {
	key, err := encoder.Encode(encoder.NewDescriptor(endpoint, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request key: %w", err)
	}

	res, err := c.http.R().SetContext(ctx).Get(apiBase + key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("product request returned status %d", res.StatusCode())
	}

	var doc map[string]any
	if err := json.Unmarshal(res.Body(), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode product payload: %w", err)
	}

	slog.Debug("Product fetched", "endpoint", endpoint, "status", res.StatusCode())
	return doc, nil
}
