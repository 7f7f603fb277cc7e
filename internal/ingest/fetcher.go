package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// RawArticle is the normalized output of a fetcher before the dedup gate.
type RawArticle struct {
	URL     string
	Title   string
	Content string
	Source  string

	// RiskScore is set only by fetchers that pre-score their feed.
	// Articles above the high-risk threshold are grouped into an alert.
	RiskScore *float64
}

// Fetcher collects candidate articles from one news source.
type Fetcher interface {
	// Name identifies the source in logs and run counters.
	Name() string

	// Fetch returns the articles currently listed by the source.
	Fetch(ctx context.Context) ([]RawArticle, error)
}

// SiteConfig describes how to scrape one HTML news listing.
type SiteConfig struct {
	Name string `json:"name"`
	URL  string `json:"url"`

	// CSS selectors. ItemSelector matches one article block; the rest
	// are evaluated relative to it.
	ItemSelector    string `json:"item_selector"`
	TitleSelector   string `json:"title_selector"`
	LinkSelector    string `json:"link_selector"`
	ContentSelector string `json:"content_selector,omitempty"`

	// RiskAttr names a data attribute carrying a pre-computed risk
	// score, for sources that publish one. Empty for plain sources.
	RiskAttr string `json:"risk_attr,omitempty"`
}

// HTMLFetcherOptions configures the shared HTTP client.
type HTMLFetcherOptions struct {
	// Client overrides the default client. Optional.
	Client *http.Client

	// Timeout is the per-request timeout. Default 15s. Ignored when
	// Client is set.
	Timeout time.Duration
}

// HTMLFetcher scrapes a news listing page with CSS selectors.
type HTMLFetcher struct {
	cfg    SiteConfig
	client *http.Client
}

// NewHTMLFetcher creates a fetcher for one site.
func NewHTMLFetcher(cfg SiteConfig, opts HTMLFetcherOptions) *HTMLFetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTMLFetcher{cfg: cfg, client: client}
}

// Name returns the configured source name.
func (f *HTMLFetcher) Name() string {
	return f.cfg.Name
}

// Fetch downloads the listing page and extracts articles.
func (f *HTMLFetcher) Fetch(ctx context.Context) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", f.cfg.Name, err)
	}
	req.Header.Set("User-Agent", "conflict-signal/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", f.cfg.Name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.cfg.Name, err)
	}

	base, err := url.Parse(f.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse base url for %s: %w", f.cfg.Name, err)
	}

	var articles []RawArticle
	doc.Find(f.cfg.ItemSelector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(f.cfg.TitleSelector).First().Text())

		link := sel.Find(f.cfg.LinkSelector).First()
		href, ok := link.Attr("href")
		if !ok || title == "" {
			return
		}
		abs := resolveURL(base, strings.TrimSpace(href))
		if abs == "" {
			return
		}

		content := title
		if f.cfg.ContentSelector != "" {
			if text := strings.TrimSpace(sel.Find(f.cfg.ContentSelector).First().Text()); text != "" {
				content = text
			}
		}

		a := RawArticle{
			URL:     abs,
			Title:   title,
			Content: content,
			Source:  f.cfg.Name,
		}
		if f.cfg.RiskAttr != "" {
			if raw, ok := sel.Attr(f.cfg.RiskAttr); ok {
				if score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
					a.RiskScore = &score
				}
			}
		}
		articles = append(articles, a)
	})

	return articles, nil
}

// resolveURL resolves href against the listing page URL. Returns "" for
// unusable links (fragments, javascript:).
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
