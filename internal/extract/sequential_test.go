package extract

import (
	"context"
	"testing"
)

func mustSequential(t *testing.T, subs []Strategy, cfg SequentialConfig) *SequentialStrategy {
	t.Helper()
	s, err := NewSequential(subs, cfg)
	if err != nil {
		t.Fatalf("NewSequential() error = %v", err)
	}
	return s
}

func TestNewSequentialValidation(t *testing.T) {
	if _, err := NewSequential(nil, SequentialConfig{}); !IsKind(err, KindConfiguration) {
		t.Errorf("empty subs: error = %v, want Configuration", err)
	}

	s := mustSequential(t, []Strategy{&stubStrategy{name: "A"}}, SequentialConfig{})
	if s.Name() != "Sequential" {
		t.Errorf("Name() = %s, want Sequential default", s.Name())
	}
	if s.Category() != CategoryWorkflow {
		t.Errorf("Category() = %s, want workflow", s.Category())
	}
}

func TestSequentialAccumulates(t *testing.T) {
	first := &stubStrategy{name: "First", category: CategoryNews, rec: Record{
		"headline": "first headline",
		"tags":     []any{"a", "b"},
		"meta":     map[string]any{"lang": "en"},
	}}
	second := &stubStrategy{name: "Second", category: CategoryCrypto, rec: Record{
		"headline": "refined headline",
		"tags":     []any{"b", "c"},
		"meta":     map[string]any{"chain": "btc"},
		"price":    10.5,
	}}
	s := mustSequential(t, []Strategy{first, second}, SequentialConfig{Name: "Pipeline"})

	rec, err := s.Extract(context.Background(), "https://example.com", "body", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	// Later steps refine earlier ones.
	if rec["headline"] != "refined headline" {
		t.Errorf("headline = %v, want later step's value", rec["headline"])
	}
	if rec["price"] != 10.5 {
		t.Errorf("price = %v", rec["price"])
	}

	tags, ok := rec["tags"].([]any)
	if !ok || len(tags) != 3 {
		t.Fatalf("tags = %v, want concatenated dedup", rec["tags"])
	}

	meta, ok := rec["meta"].(map[string]any)
	if !ok || meta["lang"] != "en" || meta["chain"] != "btc" {
		t.Errorf("meta = %v, want unioned map", rec["meta"])
	}

	prov := rec[MetadataKey].(map[string]any)
	if prov["strategy"] != "Pipeline" {
		t.Errorf("strategy = %v, want Pipeline", prov["strategy"])
	}
	steps := prov["steps"].([]map[string]any)
	if len(steps) != 2 {
		t.Fatalf("steps = %v, want 2", steps)
	}
	if steps[0]["strategy"] != "First" || steps[0]["step_index"] != 0 {
		t.Errorf("steps[0] = %v", steps[0])
	}
	if steps[0]["fields_added"] != 3 {
		t.Errorf("steps[0] fields_added = %v, want 3", steps[0]["fields_added"])
	}
	if steps[1]["fields_added"] != 1 {
		t.Errorf("steps[1] fields_added = %v, want 1 (price)", steps[1]["fields_added"])
	}
}

func TestSequentialPassesResultsForward(t *testing.T) {
	first := &stubStrategy{name: "First", category: CategoryNews, rec: Record{"headline": "x"}}
	second := &stubStrategy{name: "Second", category: CategoryCrypto, rec: Record{"price": 1.0}}
	s := mustSequential(t, []Strategy{first, second}, SequentialConfig{PassResults: true})

	if _, err := s.Extract(context.Background(), "https://example.com", "body", nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if _, ok := first.lastOpts[OptionPreviousResults]; ok {
		t.Error("first step should see no previous results")
	}
	prev, ok := second.lastOpts[OptionPreviousResults].(map[string]any)
	if !ok {
		t.Fatalf("second step missing previous results: %v", second.lastOpts)
	}
	if prev["headline"] != "x" {
		t.Errorf("previous results = %v", prev)
	}
	if _, ok := prev[MetadataKey]; ok {
		t.Error("provenance should not be forwarded between steps")
	}
}

func TestSequentialWithoutPassResults(t *testing.T) {
	first := &stubStrategy{name: "First", category: CategoryNews, rec: Record{"headline": "x"}}
	second := &stubStrategy{name: "Second", category: CategoryCrypto, rec: Record{"price": 1.0}}
	s := mustSequential(t, []Strategy{first, second}, SequentialConfig{PassResults: false})

	if _, err := s.Extract(context.Background(), "https://example.com", "body", nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if _, ok := second.lastOpts[OptionPreviousResults]; ok {
		t.Error("previous results forwarded despite PassResults off")
	}
}

func TestSequentialContinuesPastFailedStep(t *testing.T) {
	bad := &stubStrategy{name: "Bad", category: CategoryNews, err: New(KindAPIConnection, "down")}
	good := &stubStrategy{name: "Good", category: CategoryCrypto, rec: Record{"price": 2.0}}
	s := mustSequential(t, []Strategy{bad, good}, SequentialConfig{})

	rec, err := s.Extract(context.Background(), "https://example.com", "body", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v, want step failures absorbed", err)
	}
	if rec["price"] != 2.0 {
		t.Errorf("price = %v", rec["price"])
	}
	if good.callCount() != 1 {
		t.Errorf("good calls = %d, want 1", good.callCount())
	}

	steps := rec[MetadataKey].(map[string]any)["steps"].([]map[string]any)
	if steps[0]["fields_added"] != 0 {
		t.Errorf("failed step fields_added = %v, want 0", steps[0]["fields_added"])
	}
	if _, ok := steps[0]["error"].(string); !ok {
		t.Errorf("failed step should record its error: %v", steps[0])
	}
	if _, ok := steps[1]["error"]; ok {
		t.Errorf("successful step should not record an error: %v", steps[1])
	}
}
