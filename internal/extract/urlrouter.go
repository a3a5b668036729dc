package extract

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Matcher decides whether a routing rule applies to a URL.
type Matcher interface {
	Match(rawURL string) bool
	String() string
}

// DomainMatcher matches a URL by host. The host is lowercased and stripped
// of its port before comparison; with subdomains enabled, any host ending
// in "." + domain also matches.
type DomainMatcher struct {
	domain            string
	includeSubdomains bool
}

// NewDomainMatcher creates a domain matcher.
func NewDomainMatcher(domain string, includeSubdomains bool) *DomainMatcher {
	return &DomainMatcher{
		domain:            strings.ToLower(strings.TrimSpace(domain)),
		includeSubdomains: includeSubdomains,
	}
}

// Match reports whether the URL's host belongs to the domain.
func (m *DomainMatcher) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if host == m.domain {
		return true
	}
	return m.includeSubdomains && strings.HasSuffix(host, "."+m.domain)
}

func (m *DomainMatcher) String() string {
	if m.includeSubdomains {
		return "domain:*." + m.domain
	}
	return "domain:" + m.domain
}

// RegexMatcher matches a URL against a pattern anywhere in the string.
type RegexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher compiles a regex matcher.
func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, Wrap(KindConfiguration, "invalid route pattern "+pattern, err)
	}
	return &RegexMatcher{re: re}, nil
}

// Match reports whether the pattern occurs in the URL.
func (m *RegexMatcher) Match(rawURL string) bool {
	return m.re.MatchString(rawURL)
}

func (m *RegexMatcher) String() string {
	return "regex:" + m.re.String()
}

// RouteRule binds a matcher to a strategy name with a priority. Higher
// priorities are consulted first.
type RouteRule struct {
	Matcher  Matcher
	Strategy string
	Priority int

	// Config is passed to the factory when the rule's strategy is built.
	Config map[string]any
}

// Builder constructs strategies by registry name; the factory satisfies it.
type Builder interface {
	Create(name string, cfg map[string]any) (Strategy, error)
}

// URLRouterConfig configures a URL-routing strategy.
type URLRouterConfig struct {
	// Name is the instance identity; defaults to "URLRouter".
	Name string

	// Fallback is the strategy used when no rule matches.
	Fallback       string
	FallbackConfig map[string]any

	Logger *slog.Logger
}

// URLRouterStrategy routes each URL to the sub-strategy of the first
// matching rule, by descending priority. Target strategies are built
// lazily and cached; a rule whose strategy fails to build logs and falls
// through to the next match.
type URLRouterStrategy struct {
	name           string
	rules          []RouteRule
	fallback       string
	fallbackConfig map[string]any
	builder        Builder
	logger         *slog.Logger

	mu    sync.Mutex
	cache map[int]Strategy // rule index (−1 = fallback) → built instance
}

// NewURLRouter creates a router over the given rules.
func NewURLRouter(rules []RouteRule, builder Builder, cfg URLRouterConfig) (*URLRouterStrategy, error) {
	if builder == nil {
		return nil, New(KindConfiguration, "url router needs a strategy builder")
	}
	if len(rules) == 0 && cfg.Fallback == "" {
		return nil, New(KindConfiguration, "url router needs rules or a fallback strategy")
	}
	for _, r := range rules {
		if r.Matcher == nil || r.Strategy == "" {
			return nil, New(KindConfiguration, "url router rule needs a matcher and a strategy name")
		}
	}
	if cfg.Name == "" {
		cfg.Name = "URLRouter"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sorted := make([]RouteRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	return &URLRouterStrategy{
		name:           cfg.Name,
		rules:          sorted,
		fallback:       cfg.Fallback,
		fallbackConfig: cfg.FallbackConfig,
		builder:        builder,
		logger:         cfg.Logger,
		cache:          make(map[int]Strategy),
	}, nil
}

// Name returns the instance identity.
func (r *URLRouterStrategy) Name() string {
	return r.name
}

// Category returns the combinator category.
func (r *URLRouterStrategy) Category() string {
	return CategoryWorkflow
}

// StrategyForURL resolves the strategy the URL routes to.
func (r *URLRouterStrategy) StrategyForURL(rawURL string) (Strategy, error) {
	for i, rule := range r.rules {
		if !rule.Matcher.Match(rawURL) {
			continue
		}
		strat, err := r.build(i, rule.Strategy, rule.Config)
		if err != nil {
			r.logger.Warn("routed strategy failed to build, falling through",
				"router", r.name,
				"rule", rule.Matcher.String(),
				"strategy", rule.Strategy,
				"error", err,
			)
			continue
		}
		return strat, nil
	}

	if r.fallback == "" {
		return nil, Newf(KindConfiguration, "no route matched %s and no fallback is configured", rawURL)
	}
	strat, err := r.build(-1, r.fallback, r.fallbackConfig)
	if err != nil {
		return nil, Wrap(KindConfiguration, "fallback strategy "+r.fallback, err)
	}
	return strat, nil
}

// Extract routes the URL and delegates to the selected strategy.
func (r *URLRouterStrategy) Extract(ctx context.Context, rawURL, content string, opts Options) (Record, error) {
	strat, err := r.StrategyForURL(rawURL)
	if err != nil {
		return nil, err
	}
	return strat.Extract(ctx, rawURL, content, opts)
}

// build lazily constructs and caches the strategy for one rule slot.
func (r *URLRouterStrategy) build(slot int, name string, cfg map[string]any) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strat, ok := r.cache[slot]; ok {
		return strat, nil
	}
	strat, err := r.builder.Create(name, cfg)
	if err != nil {
		return nil, err
	}
	r.cache[slot] = strat
	return strat, nil
}

var (
	_ Strategy = (*URLRouterStrategy)(nil)
	_ Matcher  = (*DomainMatcher)(nil)
	_ Matcher  = (*RegexMatcher)(nil)
)
