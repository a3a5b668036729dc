// Package fetcher retrieves page content for extraction testing. It does a
// single static fetch per URL; no crawling, no browser rendering.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/harvest-api/internal/constants"
	"github.com/jmylchreest/harvest-api/internal/protection"
)

// Chrome user agent for better compatibility with public sites.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds fetcher configuration.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// Result is one fetched page.
type Result struct {
	URL         string
	StatusCode  int
	ContentType string

	// HTML is the raw body; Text is the cleaned body text with script,
	// style and similar elements removed.
	HTML  string
	Text  string
	Title string

	FetchedAt time.Time
}

// Content returns the best extraction input available: cleaned text when
// the page parsed, the raw body otherwise.
func (r Result) Content() string {
	if r.Text != "" {
		return r.Text
	}
	return r.HTML
}

// Fetcher fetches single pages over HTTP.
type Fetcher struct {
	cfg    Config
	guard  *protection.Detector
	logger *slog.Logger
}

// New creates a fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultFetchTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = constants.MaxFetchBodySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{cfg: cfg, guard: protection.NewDetector(), logger: logger}
}

// Fetch retrieves one page. Non-2xx responses and pages the guard flags as
// protection or script-only shells surface as errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	result := Result{URL: rawURL, FetchedAt: time.Now()}

	c := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(f.cfg.MaxBodySize),
		// Error statuses still carry a body worth inspecting; block pages
		// and challenge interstitials usually arrive on 403/503.
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(f.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	var header http.Header
	c.OnResponse(func(r *colly.Response) {
		result.URL = r.Request.URL.String()
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		if r.Headers != nil {
			header = *r.Headers
		}
	})

	if err := c.Visit(rawURL); err != nil {
		return result, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
	}

	if result.HTML != "" && strings.Contains(result.ContentType, "html") {
		if err := parsePage(&result); err != nil {
			// Unparseable HTML still leaves the raw body usable.
			f.logger.Debug("page parse failed, keeping raw body", "url", rawURL, "error", err)
		}
	}

	// The guard's verdict names the obstacle; a bare status error is the
	// fallback for unflagged non-2xx responses.
	page := protection.Page{ContentType: result.ContentType, HTML: result.HTML, Text: result.Text}
	if v := f.guard.Check(result.StatusCode, header, page); v.Blocked() {
		f.logGuard(result.URL, v)
		return result, fmt.Errorf("fetch %s: %s", rawURL, v.Reason)
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return result, fmt.Errorf("fetch %s: unexpected status %d", rawURL, result.StatusCode)
	}

	f.logger.Debug("fetched page",
		"url", result.URL,
		"status", result.StatusCode,
		"body_size", len(result.HTML),
		"text_size", len(result.Text),
	)
	return result, nil
}

func (f *Fetcher) logGuard(url string, v protection.Verdict) {
	f.logger.Info("fetched page rejected",
		"url", url,
		"signal", v.Signal,
		"confidence", v.Confidence,
		"reason", v.Reason,
	)
}

// parsePage extracts the title and cleaned text from an HTML body.
func parsePage(result *Result) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return err
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, iframe, svg").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	result.Text = strings.Join(parts, "\n")
	return nil
}

// cleanText collapses runs of whitespace to single spaces.
func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
