package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<!DOCTYPE html>
<html><body>
<div class="headline" data-risk="92.5">
  <h2 class="title">Gunmen attack village in Zamfara</h2>
  <a class="link" href="/news/zamfara-attack">Read more</a>
  <p class="summary">Armed men raided a village near Anka overnight.</p>
</div>
<div class="headline">
  <h2 class="title">Protest over fuel prices in Lagos</h2>
  <a class="link" href="https://other.example.ng/lagos-protest">Read more</a>
  <p class="summary"></p>
</div>
<div class="headline">
  <h2 class="title"></h2>
  <a class="link" href="/news/untitled">Read more</a>
</div>
<div class="headline">
  <h2 class="title">Broken link item</h2>
  <a class="link" href="javascript:void(0)">Read more</a>
</div>
</body></html>`

func TestHTMLFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	f := NewHTMLFetcher(SiteConfig{
		Name:            "test-source",
		URL:             srv.URL + "/latest",
		ItemSelector:    "div.headline",
		TitleSelector:   "h2.title",
		LinkSelector:    "a.link",
		ContentSelector: "p.summary",
		RiskAttr:        "data-risk",
	}, HTMLFetcherOptions{})

	articles, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Gunmen attack village in Zamfara", articles[0].Title)
	assert.Equal(t, srv.URL+"/news/zamfara-attack", articles[0].URL)
	assert.Equal(t, "Armed men raided a village near Anka overnight.", articles[0].Content)
	assert.Equal(t, "test-source", articles[0].Source)
	require.NotNil(t, articles[0].RiskScore)
	assert.Equal(t, 92.5, *articles[0].RiskScore)

	// Absolute link kept as-is; empty summary falls back to the title.
	assert.Equal(t, "https://other.example.ng/lagos-protest", articles[1].URL)
	assert.Equal(t, articles[1].Title, articles[1].Content)
	assert.Nil(t, articles[1].RiskScore)
}

func TestHTMLFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTMLFetcher(SiteConfig{Name: "down", URL: srv.URL}, HTMLFetcherOptions{})
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
