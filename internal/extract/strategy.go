package extract

import (
	"context"
	"time"
)

// Record is an extraction result: a JSON-compatible object keyed by field
// name, plus a _metadata entry describing how it was produced.
type Record = map[string]any

// MetadataKey is the reserved record key carrying extraction provenance.
const MetadataKey = "_metadata"

// OptionPreviousResults carries accumulated results between pipeline steps.
const OptionPreviousResults = "previous_results"

// Options carries per-invocation extraction options. Strategies read the
// keys they understand and ignore the rest.
type Options map[string]any

// Strategy extracts a structured record from page content.
//
// Extract must be safe for concurrent use: combinators fan invocations out
// across goroutines. Failures are reported as *Error values so callers can
// branch on Kind.
type Strategy interface {
	Extract(ctx context.Context, url, content string, opts Options) (Record, error)

	// Name is the registry identity of the strategy instance.
	Name() string

	// Category is the content category the strategy targets, one of the
	// registry's category set.
	Category() string
}

// Categories a strategy may declare. Combinator strategies use composite
// and workflow; everything else describes the content domain.
const (
	CategoryCrypto    = "crypto"
	CategoryNews      = "news"
	CategorySocial    = "social"
	CategoryProduct   = "product"
	CategoryFinancial = "financial"
	CategoryAcademic  = "academic"
	CategoryNFT       = "nft"
	CategoryGeneral   = "general"
	CategoryComposite = "composite"
	CategoryWorkflow  = "workflow"
	CategoryCustom    = "custom"
)

// validCategories is the closed set accepted by the registry.
var validCategories = map[string]bool{
	CategoryCrypto:    true,
	CategoryNews:      true,
	CategorySocial:    true,
	CategoryProduct:   true,
	CategoryFinancial: true,
	CategoryAcademic:  true,
	CategoryNFT:       true,
	CategoryGeneral:   true,
	CategoryComposite: true,
	CategoryWorkflow:  true,
	CategoryCustom:    true,
}

// ValidCategory reports whether category belongs to the closed category set.
func ValidCategory(category string) bool {
	return validCategories[category]
}

// Timestamp renders an extraction timestamp the way records carry them:
// RFC 3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// cloneOptions copies opts so a combinator can add step-local keys without
// leaking them to siblings.
func cloneOptions(opts Options) Options {
	out := make(Options, len(opts)+1)
	for k, v := range opts {
		out[k] = v
	}
	return out
}

// cloneRecord shallow-copies a record.
func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
