package extract

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
)

// Metadata describes a registered strategy: everything discovery needs
// without constructing an instance.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Version     string `json:"version"`

	// OutputSchema is the JSON Schema of Extract's result.
	OutputSchema map[string]any `json:"schema,omitempty"`

	// ConfigSchema is the JSON Schema of the constructor config. Derived
	// from the config struct when the registrant does not supply one.
	ConfigSchema map[string]any `json:"config_schema,omitempty"`

	// Source records the registration origin: builtin:<name> for the
	// compiled-in catalog, or the defining file's path for strategies
	// loaded from a strategies directory.
	Source string `json:"file_path"`
}

// Constructor builds a strategy instance from a config map.
type Constructor func(cfg map[string]any) (Strategy, error)

// Entry pairs strategy metadata with its constructor.
type Entry struct {
	Metadata    Metadata
	Constructor Constructor
}

// Loader populates a registry. Reload clears the registry and re-runs every
// loader in registration order.
type Loader func(r *Registry) error

// Registry is the name-keyed strategy catalog. Lookups are safe for
// concurrent use; Reload must not be interleaved with other Reloads and
// callers serialize it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	loaders []Loader
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

// Register adds a strategy under its metadata name. Registering a name
// again overwrites the earlier entry with a warning.
func (r *Registry) Register(meta Metadata, ctor Constructor) error {
	if meta.Name == "" {
		return New(KindConfiguration, "strategy name must not be empty")
	}
	if ctor == nil {
		return Newf(KindConfiguration, "strategy %s: constructor must not be nil", meta.Name)
	}
	if meta.Category == "" {
		meta.Category = CategoryGeneral
	}
	if !ValidCategory(meta.Category) {
		return Newf(KindConfiguration, "strategy %s: unknown category %q", meta.Name, meta.Category)
	}
	if meta.Version == "" {
		meta.Version = "1.0.0"
	}
	if meta.OutputSchema != nil {
		if err := ValidateSchema(meta.OutputSchema); err != nil {
			return &Error{Kind: KindConfiguration, Detail: "strategy " + meta.Name + ": invalid output schema", Err: err}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.entries[meta.Name]; exists {
		r.logger.Warn("strategy already registered, overwriting",
			"name", meta.Name,
			"previous_source", prev.Metadata.Source,
			"source", meta.Source,
		)
	}
	r.entries[meta.Name] = Entry{Metadata: meta, Constructor: ctor}
	return nil
}

// Get looks a strategy up by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns all registered metadata sorted by name.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListByCategory returns the metadata of strategies in one category,
// sorted by name.
func (r *Registry) ListByCategory(category string) []Metadata {
	all := r.List()
	out := all[:0]
	for _, m := range all {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// AddLoader appends a catalog loader. Loaders run in registration order on
// every Reload.
func (r *Registry) AddLoader(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders = append(r.loaders, l)
}

// Reload clears the catalog and re-runs every loader. A failing loader is
// logged and the remaining loaders still run; the first failure is
// returned alongside the count of strategies registered.
func (r *Registry) Reload() (int, error) {
	r.mu.Lock()
	r.entries = make(map[string]Entry)
	loaders := make([]Loader, len(r.loaders))
	copy(loaders, r.loaders)
	r.mu.Unlock()

	var firstErr error
	for _, l := range loaders {
		if err := l(r); err != nil {
			r.logger.Warn("strategy loader failed, continuing", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return r.Len(), firstErr
}

// DeriveConfigSchema reflects a JSON schema from a config struct. Fields
// without omitempty become required; json tags name the properties.
func DeriveConfigSchema(prototype any) map[string]any {
	reflector := &jsonschema.Reflector{
		// Inline everything, no $ref or $schema noise.
		ExpandedStruct: true,
		DoNotReference: true,
	}

	schema := reflector.Reflect(prototype)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
