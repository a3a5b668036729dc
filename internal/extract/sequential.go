package extract

import (
	"context"
	"log/slog"
	"time"
)

// SequentialConfig configures a sequential strategy.
type SequentialConfig struct {
	// Name is the instance identity; defaults to "Sequential".
	Name string

	// PassResults forwards the accumulated record to each step as the
	// previous_results option.
	PassResults bool

	Logger *slog.Logger
}

// SequentialStrategy chains sub-strategies in order, merging each step's
// record into an accumulator. A failed step contributes nothing and the
// pipeline continues; later steps refine earlier ones, so scalar conflicts
// resolve to the later step.
type SequentialStrategy struct {
	name        string
	subs        []Strategy
	passResults bool
	logger      *slog.Logger
}

// NewSequential creates a pipeline over the given sub-strategies.
func NewSequential(subs []Strategy, cfg SequentialConfig) (*SequentialStrategy, error) {
	if len(subs) == 0 {
		return nil, New(KindConfiguration, "sequential needs at least one sub-strategy")
	}
	if cfg.Name == "" {
		cfg.Name = "Sequential"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SequentialStrategy{
		name:        cfg.Name,
		subs:        subs,
		passResults: cfg.PassResults,
		logger:      cfg.Logger,
	}, nil
}

// Name returns the instance identity.
func (s *SequentialStrategy) Name() string {
	return s.name
}

// Category returns the combinator category.
func (s *SequentialStrategy) Category() string {
	return CategoryWorkflow
}

// Extract runs the pipeline.
func (s *SequentialStrategy) Extract(ctx context.Context, url, content string, opts Options) (Record, error) {
	accumulated := make(Record)
	steps := make([]map[string]any, 0, len(s.subs))

	for i, sub := range s.subs {
		stepOpts := cloneOptions(opts)
		if s.passResults && len(accumulated) > 0 {
			snapshot := cloneRecord(accumulated)
			delete(snapshot, MetadataKey)
			stepOpts[OptionPreviousResults] = map[string]any(snapshot)
		}

		step := map[string]any{
			"strategy":   sub.Name(),
			"step_index": i,
		}

		rec, err := sub.Extract(ctx, url, content, stepOpts)
		if err != nil {
			s.logger.Warn("pipeline step failed, continuing",
				"pipeline", s.name,
				"strategy", sub.Name(),
				"step_index", i,
				"error", err,
			)
			step["fields_added"] = 0
			step["error"] = err.Error()
			steps = append(steps, step)
			continue
		}

		step["fields_added"] = mergeStep(accumulated, rec)
		steps = append(steps, step)
	}

	accumulated[MetadataKey] = map[string]any{
		"strategy":             s.name,
		"extraction_timestamp": Timestamp(time.Now()),
		"steps":                steps,
	}
	return accumulated, nil
}

// mergeStep merges one step's record into the accumulator and reports how
// many new fields it contributed. Maps union (the step refines misses),
// lists concatenate deduplicated, scalars take the step's value.
func mergeStep(acc Record, rec Record) int {
	added := 0
	for k, v := range rec {
		if k == MetadataKey {
			continue
		}
		existing, exists := acc[k]
		if !exists {
			acc[k] = v
			added++
			continue
		}

		switch newVal := v.(type) {
		case map[string]any:
			if oldMap, ok := existing.(map[string]any); ok {
				merged := make(map[string]any, len(oldMap)+len(newVal))
				for mk, mv := range oldMap {
					merged[mk] = mv
				}
				for mk, mv := range newVal {
					merged[mk] = mv
				}
				acc[k] = merged
				continue
			}
			acc[k] = v

		case []any:
			if oldList, ok := existing.([]any); ok {
				seen := make(map[string]bool, len(oldList))
				merged := make([]any, 0, len(oldList)+len(newVal))
				for _, item := range oldList {
					seen[fingerprint(item)] = true
					merged = append(merged, item)
				}
				for _, item := range newVal {
					if fp := fingerprint(item); !seen[fp] {
						seen[fp] = true
						merged = append(merged, item)
					}
				}
				acc[k] = merged
				continue
			}
			acc[k] = v

		default:
			acc[k] = v
		}
	}
	return added
}

var _ Strategy = (*SequentialStrategy)(nil)
