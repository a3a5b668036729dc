// Package protection classifies fetched pages that are bot-protection
// interstitials, block pages or script-only shells rather than real content.
package protection

import (
	"net/http"
	"regexp"
	"strings"
)

// Signal names the kind of obstacle found on a page.
type Signal string

const (
	SignalChallenge  Signal = "challenge"
	SignalCaptcha    Signal = "captcha"
	SignalDenied     Signal = "denied"
	SignalThrottled  Signal = "throttled"
	SignalScriptOnly Signal = "script_only"
	SignalThinBody   Signal = "thin_body"
)

// Page is the fetched document under inspection. Text carries the cleaned
// visible text when the caller parsed the body; it may be empty.
type Page struct {
	ContentType string
	HTML        string
	Text        string
}

func (p Page) isHTML() bool {
	return strings.Contains(p.ContentType, "html")
}

// Verdict is the outcome of a check. The zero Verdict means the page is usable.
type Verdict struct {
	Signal     Signal
	Confidence int // 0-100
	Reason     string
}

// Blocked reports whether the page should not be fed to extraction.
func (v Verdict) Blocked() bool {
	return v.Signal != ""
}

// Detector flags responses that look like protection pages or empty shells.
// Thresholds only apply to HTML bodies; other content types pass through.
type Detector struct {
	// MinBodyBytes marks smaller HTML bodies without a content landmark as thin.
	MinBodyBytes int

	// MinVisibleText is the visible-text floor for link-heavy pages.
	MinVisibleText int

	// MinTextRatio is the visible-text to body-size floor for large pages.
	MinTextRatio float64
}

// NewDetector returns a detector with default thresholds.
func NewDetector() *Detector {
	return &Detector{
		MinBodyBytes:   500,
		MinVisibleText: 300,
		MinTextRatio:   0.02,
	}
}

// bodySignals are substring markers matched against the lowercased body,
// most specific first. All patterns are stored lowercase.
var bodySignals = []struct {
	signal     Signal
	confidence int
	reason     string
	patterns   []string
}{
	{SignalChallenge, 90, "challenge interstitial detected", []string{
		"cf-browser-verification",
		"challenge-platform",
		"cf_chl_opt",
		"_cf_chl",
		"checking your browser",
		"just a moment...",
		"attention required! | cloudflare",
		"ddos protection by",
	}},
	{SignalCaptcha, 95, "captcha challenge detected", []string{
		"g-recaptcha",
		"grecaptcha",
		"h-captcha",
		"hcaptcha",
		"data-sitekey",
		"cf-turnstile",
		"captcha-delivery",
	}},
	{SignalDenied, 85, "access denied page detected", []string{
		"access denied",
		"access to this page has been denied",
		"you don't have permission",
		"request blocked",
		"bot detected",
		"automated access",
		"verify you are human",
		"are you a robot",
	}},
	{SignalScriptOnly, 80, "page asks for JavaScript to render its content", []string{
		"enable javascript",
		"javascript is required",
		"requires javascript",
	}},
}

var (
	// Empty framework mount points mean the content is rendered client side.
	spaShellPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<div\s+id=["'](?:root|app|__next|__nuxt|react-root)["'][^>]*>\s*</div>`),
		regexp.MustCompile(`<app-root[^>]*>\s*</app-root>`),
	}

	// Landmarks a real content page is expected to carry.
	contentLandmarkPattern = regexp.MustCompile(`<(article|main|section)\b`)
)

// Check inspects one response. Status and header signals win over body
// signals; thinness heuristics only judge HTML bodies.
func (d *Detector) Check(statusCode int, header http.Header, page Page) Verdict {
	if v := statusVerdict(statusCode); v.Blocked() {
		return v
	}
	if header.Get("Cf-Mitigated") == "challenge" {
		return Verdict{Signal: SignalChallenge, Confidence: 95, Reason: "challenge issued by the site's proxy"}
	}

	if page.HTML == "" {
		if statusCode < 300 {
			return Verdict{Signal: SignalThinBody, Confidence: 80, Reason: "empty response body"}
		}
		// Empty error bodies carry no more signal than the status did.
		return Verdict{}
	}

	lower := strings.ToLower(page.HTML)
	for _, s := range bodySignals {
		for _, pattern := range s.patterns {
			if strings.Contains(lower, pattern) {
				return Verdict{Signal: s.signal, Confidence: s.confidence, Reason: s.reason}
			}
		}
	}
	for _, re := range spaShellPatterns {
		if re.MatchString(lower) {
			return Verdict{Signal: SignalScriptOnly, Confidence: 90, Reason: "page is an empty application shell, content is rendered client side"}
		}
	}

	if !page.isHTML() {
		return Verdict{}
	}

	// Link-heavy pages with almost no text are navigation shells.
	if len(page.Text) < d.MinVisibleText && strings.Count(lower, "<a ") > 5 {
		return Verdict{Signal: SignalScriptOnly, Confidence: 75, Reason: "page has navigation but almost no visible text"}
	}
	if len(page.HTML) > 1000 {
		if ratio := float64(len(page.Text)) / float64(len(page.HTML)); ratio < d.MinTextRatio {
			return Verdict{Signal: SignalScriptOnly, Confidence: 70, Reason: "visible text is a tiny fraction of the page"}
		}
	}
	if len(page.HTML) < d.MinBodyBytes && !contentLandmarkPattern.MatchString(lower) {
		return Verdict{Signal: SignalThinBody, Confidence: 60, Reason: "response too small to be a content page"}
	}

	return Verdict{}
}

func statusVerdict(statusCode int) Verdict {
	switch statusCode {
	case http.StatusForbidden:
		return Verdict{Signal: SignalDenied, Confidence: 90, Reason: "access denied (status 403), the site is likely blocking automated clients"}
	case http.StatusServiceUnavailable:
		return Verdict{Signal: SignalChallenge, Confidence: 70, Reason: "status 503, commonly a challenge interstitial"}
	case http.StatusTooManyRequests:
		return Verdict{Signal: SignalThrottled, Confidence: 95, Reason: "the site rate limited the request (status 429)"}
	}
	return Verdict{}
}
