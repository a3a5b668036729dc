package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/harvest-api/internal/constants"
)

// Merge modes a composite strategy supports.
const (
	MergeSmart        = "smart"
	MergeUnion        = "union"
	MergeIntersection = "intersection"
)

// CompositeConfig configures a composite strategy.
type CompositeConfig struct {
	// Name is the instance identity; defaults to "Composite".
	Name string

	// MergeMode is one of smart, union, intersection. Defaults to smart.
	MergeMode string

	// Priorities maps a field name to the sub-strategy that owns it in
	// smart merges.
	Priorities map[string]string

	// MaxParallel bounds concurrent sub-strategy execution.
	MaxParallel int

	// Classifier drives sub-strategy selection. Defaults to the embedded
	// keyword tables.
	Classifier *Classifier

	Logger *slog.Logger
}

// CompositeStrategy runs an ensemble of sub-strategies concurrently and
// merges their records. Sub-strategy failures are isolated: one failure
// never cancels siblings, and only an all-failed ensemble errors.
type CompositeStrategy struct {
	name        string
	subs        []Strategy
	mergeMode   string
	priorities  map[string]string
	maxParallel int
	classifier  *Classifier
	logger      *slog.Logger
}

// NewComposite creates a composite over the given sub-strategies, which
// run and merge in the given order.
func NewComposite(subs []Strategy, cfg CompositeConfig) (*CompositeStrategy, error) {
	if len(subs) == 0 {
		return nil, New(KindConfiguration, "composite needs at least one sub-strategy")
	}

	switch cfg.MergeMode {
	case "":
		cfg.MergeMode = MergeSmart
	case MergeSmart, MergeUnion, MergeIntersection:
	default:
		return nil, Newf(KindConfiguration, "unknown merge mode %q", cfg.MergeMode)
	}

	if cfg.Name == "" {
		cfg.Name = "Composite"
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = constants.DefaultMaxParallelSubstrategies
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &CompositeStrategy{
		name:        cfg.Name,
		subs:        subs,
		mergeMode:   cfg.MergeMode,
		priorities:  cfg.Priorities,
		maxParallel: cfg.MaxParallel,
		classifier:  cfg.Classifier,
		logger:      cfg.Logger,
	}, nil
}

// Name returns the instance identity.
func (c *CompositeStrategy) Name() string {
	return c.name
}

// Category returns the combinator category.
func (c *CompositeStrategy) Category() string {
	return CategoryComposite
}

// Subs returns the sub-strategy names in declared order.
func (c *CompositeStrategy) Subs() []string {
	names := make([]string, len(c.subs))
	for i, s := range c.subs {
		names[i] = s.Name()
	}
	return names
}

// Extract classifies the content, fans the selected sub-strategies out and
// merges their records per the configured merge mode.
func (c *CompositeStrategy) Extract(ctx context.Context, url, content string, opts Options) (Record, error) {
	ranked, confidences := c.classifier.Classify(content)
	selected := c.selectSubs(ranked, confidences)

	type subResult struct {
		rec Record
		err error
	}
	results := make([]subResult, len(selected))

	var g errgroup.Group
	g.SetLimit(c.maxParallel)
	for i, sub := range selected {
		g.Go(func() error {
			rec, err := sub.Extract(ctx, url, content, cloneOptions(opts))
			results[i] = subResult{rec: rec, err: err}
			// Failures stay in the slot; returning them would cancel
			// nothing but would shadow sibling bookkeeping.
			return nil
		})
	}
	_ = g.Wait()

	var (
		succeeded  []Record
		categories []string
		successful []string
		failed     []string
	)
	for i, res := range results {
		name := selected[i].Name()
		if res.err != nil {
			c.logger.Warn("sub-strategy failed",
				"composite", c.name,
				"strategy", name,
				"error", res.err,
			)
			failed = append(failed, name)
			continue
		}
		succeeded = append(succeeded, res.rec)
		categories = append(categories, selected[i].Category())
		successful = append(successful, name)
	}

	if len(succeeded) == 0 {
		details := make([]string, 0, len(results))
		for i, res := range results {
			if res.err != nil {
				details = append(details, fmt.Sprintf("%s: %v", selected[i].Name(), res.err))
			}
		}
		return nil, Newf(KindContentParsing, "all sub-strategies failed: %s", strings.Join(details, "; "))
	}

	merged := c.merge(succeeded, successful, categories, confidences)

	merged[MetadataKey] = map[string]any{
		"strategy":              c.name,
		"extraction_timestamp":  Timestamp(time.Now()),
		"strategies_used":       subNames(selected),
		"successful_strategies": successful,
		"failed_strategies":     emptyIfNil(failed),
		"content_types":         emptyIfNil(ranked),
		"confidence_scores":     confidences,
		"merge_mode":            c.mergeMode,
	}
	return merged, nil
}

// selectSubs picks the sub-strategies whose category cleared the
// classification threshold, falling back to the top-ranked types and
// finally to every sub.
func (c *CompositeStrategy) selectSubs(ranked []string, confidences map[string]float64) []Strategy {
	var selected []Strategy
	for _, sub := range c.subs {
		if confidences[sub.Category()] >= constants.ClassifierSelectionThreshold {
			selected = append(selected, sub)
		}
	}
	if len(selected) > 0 {
		return selected
	}

	top := ranked
	if len(top) > constants.ClassifierFallbackTypes {
		top = top[:constants.ClassifierFallbackTypes]
	}
	for _, sub := range c.subs {
		for _, t := range top {
			if sub.Category() == t {
				selected = append(selected, sub)
				break
			}
		}
	}
	if len(selected) > 0 {
		return selected
	}

	return c.subs
}

// merge dispatches to the configured merge mode. Results arrive in
// declared sub-strategy order with provenance stripped.
func (c *CompositeStrategy) merge(results []Record, names, categories []string, confidences map[string]float64) Record {
	stripped := make([]Record, len(results))
	for i, rec := range results {
		clean := cloneRecord(rec)
		delete(clean, MetadataKey)
		stripped[i] = clean
	}

	switch c.mergeMode {
	case MergeUnion:
		return mergeUnion(stripped)
	case MergeIntersection:
		return mergeIntersection(stripped)
	default:
		return c.mergeSmart(stripped, names, categories, confidences)
	}
}

// mergeUnion fills fields left to right; the first-seen value wins.
func mergeUnion(results []Record) Record {
	out := make(Record)
	for _, rec := range results {
		for k, v := range rec {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

// mergeIntersection keeps only keys present in every result, valued from
// the first result.
func mergeIntersection(results []Record) Record {
	out := make(Record)
	if len(results) == 0 {
		return out
	}
	for k, v := range results[0] {
		present := true
		for _, rec := range results[1:] {
			if _, ok := rec[k]; !ok {
				present = false
				break
			}
		}
		if present {
			out[k] = v
		}
	}
	return out
}

// mergeSmart resolves contested keys by value shape: maps merge, lists
// concatenate deduplicated, and scalars take the value from the result
// whose category scored the highest classifier confidence (declared order
// breaks ties). Priority-table fields fill first from their owning
// strategy; everything else unions.
func (c *CompositeStrategy) mergeSmart(results []Record, names, categories []string, confidences map[string]float64) Record {
	out := make(Record)

	for field, owner := range c.priorities {
		for i, name := range names {
			if name != owner {
				continue
			}
			if v, ok := results[i][field]; ok {
				out[field] = v
			}
			break
		}
	}

	holders := make(map[string][]int)
	for i, rec := range results {
		for k := range rec {
			holders[k] = append(holders[k], i)
		}
	}

	for key, idxs := range holders {
		if _, done := out[key]; done {
			continue
		}
		if len(idxs) == 1 {
			out[key] = results[idxs[0]][key]
			continue
		}
		out[key] = c.mergeContested(key, idxs, results, categories, confidences)
	}

	return out
}

// mergeContested merges one key held by several results.
func (c *CompositeStrategy) mergeContested(key string, idxs []int, results []Record, categories []string, confidences map[string]float64) any {
	first := results[idxs[0]][key]

	switch first.(type) {
	case map[string]any:
		merged := make(map[string]any)
		for _, i := range idxs {
			if m, ok := results[i][key].(map[string]any); ok {
				for k, v := range m {
					if _, exists := merged[k]; !exists {
						merged[k] = v
					}
				}
			}
		}
		return merged

	case []any:
		var merged []any
		seen := make(map[string]bool)
		for _, i := range idxs {
			if list, ok := results[i][key].([]any); ok {
				for _, item := range list {
					fp := fingerprint(item)
					if !seen[fp] {
						seen[fp] = true
						merged = append(merged, item)
					}
				}
			}
		}
		return merged

	default:
		// Scalar: highest category confidence wins, declared order breaks
		// ties because idxs ascend.
		best := idxs[0]
		bestConf := confidences[categories[idxs[0]]]
		for _, i := range idxs[1:] {
			if conf := confidences[categories[i]]; conf > bestConf {
				best, bestConf = i, conf
			}
		}
		return results[best][key]
	}
}

// fingerprint renders a list item for dedup comparison. JSON keeps map
// keys sorted, so equal values collide as intended.
func fingerprint(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

func subNames(subs []Strategy) []string {
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.Name()
	}
	return names
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Strategy = (*CompositeStrategy)(nil)
