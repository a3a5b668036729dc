package extract

import (
	"context"
	"sync"
	"testing"
)

func TestDomainMatcher(t *testing.T) {
	tests := []struct {
		name              string
		domain            string
		includeSubdomains bool
		url               string
		want              bool
	}{
		{"exact host", "example.com", false, "https://example.com/page", true},
		{"host is case insensitive", "example.com", false, "https://EXAMPLE.COM/page", true},
		{"port is ignored", "example.com", false, "https://example.com:8443/page", true},
		{"subdomain rejected without flag", "example.com", false, "https://news.example.com/", false},
		{"subdomain accepted with flag", "example.com", true, "https://news.example.com/", true},
		{"deep subdomain accepted with flag", "example.com", true, "https://a.b.example.com/", true},
		{"suffix is not a subdomain", "example.com", true, "https://notexample.com/", false},
		{"different host", "example.com", true, "https://example.org/", false},
		{"unparseable url", "example.com", false, "://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewDomainMatcher(tt.domain, tt.includeSubdomains)
			if got := m.Match(tt.url); got != tt.want {
				t.Errorf("Match(%s) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestRegexMatcher(t *testing.T) {
	m, err := NewRegexMatcher(`/api/v[0-9]+/`)
	if err != nil {
		t.Fatalf("NewRegexMatcher() error = %v", err)
	}
	if !m.Match("https://example.com/api/v2/items") {
		t.Error("expected pattern match")
	}
	if m.Match("https://example.com/web/items") {
		t.Error("unexpected match")
	}

	if _, err := NewRegexMatcher(`([`); !IsKind(err, KindConfiguration) {
		t.Errorf("bad pattern: error = %v, want Configuration", err)
	}
}

// fakeBuilder resolves strategy names to canned stubs and counts builds.
type fakeBuilder struct {
	mu     sync.Mutex
	builds map[string]int
	strats map[string]Strategy
	failOn map[string]bool
}

func newFakeBuilder(strats map[string]Strategy) *fakeBuilder {
	return &fakeBuilder{
		builds: make(map[string]int),
		strats: strats,
		failOn: make(map[string]bool),
	}
}

func (b *fakeBuilder) Create(name string, _ map[string]any) (Strategy, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds[name]++
	if b.failOn[name] {
		return nil, Newf(KindConfiguration, "unknown strategy: %s", name)
	}
	s, ok := b.strats[name]
	if !ok {
		return nil, Newf(KindConfiguration, "unknown strategy: %s", name)
	}
	return s, nil
}

func (b *fakeBuilder) buildCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds[name]
}

func TestURLRouterRoutes(t *testing.T) {
	crypto := &stubStrategy{name: "CryptoLLM", category: CategoryCrypto, rec: Record{"from": "crypto"}}
	api := &stubStrategy{name: "ApiLLM", category: CategoryGeneral, rec: Record{"from": "api"}}
	general := &stubStrategy{name: "GeneralLLM", category: CategoryGeneral, rec: Record{"from": "general"}}
	builder := newFakeBuilder(map[string]Strategy{
		"CryptoLLM":  crypto,
		"ApiLLM":     api,
		"GeneralLLM": general,
	})

	apiMatcher, _ := NewRegexMatcher(`/api/`)
	router, err := NewURLRouter([]RouteRule{
		{Matcher: NewDomainMatcher("coindesk.com", true), Strategy: "CryptoLLM", Priority: 10},
		{Matcher: apiMatcher, Strategy: "ApiLLM", Priority: 5},
	}, builder, URLRouterConfig{Fallback: "GeneralLLM"})
	if err != nil {
		t.Fatalf("NewURLRouter() error = %v", err)
	}

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.coindesk.com/markets/btc", "crypto"},
		{"https://example.com/api/items", "api"},
		// Higher priority wins when both rules match.
		{"https://coindesk.com/api/feed", "crypto"},
		{"https://example.com/blog", "general"},
	}

	for _, tt := range tests {
		rec, err := router.Extract(context.Background(), tt.url, "content", nil)
		if err != nil {
			t.Fatalf("Extract(%s) error = %v", tt.url, err)
		}
		if rec["from"] != tt.want {
			t.Errorf("Extract(%s) routed to %v, want %s", tt.url, rec["from"], tt.want)
		}
	}
}

func TestURLRouterCachesBuilds(t *testing.T) {
	target := &stubStrategy{name: "CryptoLLM", category: CategoryCrypto, rec: Record{"ok": true}}
	builder := newFakeBuilder(map[string]Strategy{"CryptoLLM": target})

	router, err := NewURLRouter([]RouteRule{
		{Matcher: NewDomainMatcher("example.com", false), Strategy: "CryptoLLM"},
	}, builder, URLRouterConfig{})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := router.Extract(context.Background(), "https://example.com/", "c", nil); err != nil {
			t.Fatal(err)
		}
	}
	if got := builder.buildCount("CryptoLLM"); got != 1 {
		t.Errorf("builds = %d, want 1 (cached)", got)
	}
	if target.callCount() != 3 {
		t.Errorf("extracts = %d, want 3", target.callCount())
	}
}

func TestURLRouterFallsThroughBrokenRule(t *testing.T) {
	general := &stubStrategy{name: "GeneralLLM", category: CategoryGeneral, rec: Record{"from": "general"}}
	builder := newFakeBuilder(map[string]Strategy{"GeneralLLM": general})
	builder.failOn["MissingLLM"] = true

	router, err := NewURLRouter([]RouteRule{
		{Matcher: NewDomainMatcher("example.com", false), Strategy: "MissingLLM", Priority: 10},
		{Matcher: NewDomainMatcher("example.com", false), Strategy: "GeneralLLM", Priority: 1},
	}, builder, URLRouterConfig{})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := router.Extract(context.Background(), "https://example.com/", "c", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec["from"] != "general" {
		t.Errorf("routed to %v, want the next matching rule", rec["from"])
	}
}

func TestURLRouterNoMatch(t *testing.T) {
	builder := newFakeBuilder(nil)

	router, err := NewURLRouter([]RouteRule{
		{Matcher: NewDomainMatcher("example.com", false), Strategy: "CryptoLLM"},
	}, builder, URLRouterConfig{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = router.Extract(context.Background(), "https://other.org/", "c", nil)
	if !IsKind(err, KindConfiguration) {
		t.Errorf("error = %v, want Configuration", err)
	}
}

func TestNewURLRouterValidation(t *testing.T) {
	builder := newFakeBuilder(nil)

	if _, err := NewURLRouter(nil, nil, URLRouterConfig{Fallback: "X"}); !IsKind(err, KindConfiguration) {
		t.Errorf("nil builder: error = %v", err)
	}
	if _, err := NewURLRouter(nil, builder, URLRouterConfig{}); !IsKind(err, KindConfiguration) {
		t.Errorf("no rules, no fallback: error = %v", err)
	}
	if _, err := NewURLRouter([]RouteRule{{Strategy: "X"}}, builder, URLRouterConfig{}); !IsKind(err, KindConfiguration) {
		t.Errorf("rule without matcher: error = %v", err)
	}
}
