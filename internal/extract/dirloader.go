package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// strategyDef is a YAML strategy definition. A definition either configures
// an LLM strategy directly (instruction, schema, config) or composes other
// registered strategies by name (composite, sequential, url_router).
type strategyDef struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Category    string         `yaml:"category"`
	Description string         `yaml:"description"`
	Version     string         `yaml:"version"`
	Instruction string         `yaml:"instruction"`
	Schema      map[string]any `yaml:"schema"`
	Config      map[string]any `yaml:"config"`

	// Combinator fields.
	Strategies  []subDef          `yaml:"strategies"`
	MergeMode   string            `yaml:"merge_mode"`
	Priorities  map[string]string `yaml:"priorities"`
	PassResults *bool             `yaml:"pass_results"`

	// Router fields.
	Routes         []routeDef     `yaml:"routes"`
	Fallback       string         `yaml:"fallback"`
	FallbackConfig map[string]any `yaml:"fallback_config"`
}

// subDef references a registered strategy, optionally with config. A bare
// string is shorthand for {strategy: <name>}.
type subDef struct {
	Strategy string         `yaml:"strategy"`
	Config   map[string]any `yaml:"config"`
}

func (s *subDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&s.Strategy)
	}
	type plain subDef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = subDef(p)
	return nil
}

// routeDef is one URL-routing rule: a domain or regex pattern mapped to a
// registered strategy.
type routeDef struct {
	Domain            string         `yaml:"domain"`
	IncludeSubdomains bool           `yaml:"include_subdomains"`
	Pattern           string         `yaml:"pattern"`
	Strategy          string         `yaml:"strategy"`
	Priority          int            `yaml:"priority"`
	Config            map[string]any `yaml:"config"`
}

// strategiesFile is the document shape of a definitions file: a strategies
// list, or a single bare definition.
type strategiesFile struct {
	Strategies []strategyDef `yaml:"strategies"`
}

// DirLoader registers strategy definitions from *.yaml/*.yml files in dir.
// A missing directory is not an error; a file or definition that fails to
// parse is logged and skipped so one bad file cannot take down the catalog.
// Runs after BuiltinLoader, so definitions here override builtins by name.
func DirLoader(f *Factory, dir string) Loader {
	return func(r *Registry) error {
		if dir == "" {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return Wrap(KindConfiguration, "read strategies dir "+dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			defs, err := loadDefinitionFile(path)
			if err != nil {
				f.logger.Warn("skipping strategy definition file", "path", path, "error", err)
				continue
			}
			for _, def := range defs {
				if err := registerDef(r, f, def, path); err != nil {
					f.logger.Warn("skipping strategy definition", "path", path, "name", def.Name, "error", err)
				}
			}
		}
		return nil
	}
}

// loadDefinitionFile parses one definitions file.
func loadDefinitionFile(path string) ([]strategyDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file strategiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(file.Strategies) > 0 {
		return file.Strategies, nil
	}

	// Single bare definition.
	var def strategyDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("%s defines no strategies", filepath.Base(path))
	}
	return []strategyDef{def}, nil
}

// registerDef registers one parsed definition under its source path.
func registerDef(r *Registry, f *Factory, def strategyDef, source string) error {
	if def.Name == "" {
		return New(KindConfiguration, "definition needs a name")
	}

	typ := def.Type
	if typ == "" {
		typ = "llm"
	}

	var (
		ctor         Constructor
		category     = def.Category
		configSchema map[string]any
		err          error
	)
	switch typ {
	case "llm":
		if category == "" {
			category = CategoryCustom
		}
		base, derr := DecodeLLMParams(def.Config)
		if derr != nil {
			return derr
		}
		if def.Instruction != "" {
			base.Instruction = def.Instruction
		}
		if def.Schema != nil {
			base.Schema = def.Schema
		}
		ctor = llmConstructor(f, def.Name, category, def.Version, base)
		configSchema = DeriveConfigSchema(&LLMParams{})

	case "composite":
		if category == "" {
			category = CategoryComposite
		}
		ctor, err = compositeConstructor(f, def)

	case "sequential":
		if category == "" {
			category = CategoryWorkflow
		}
		ctor, err = sequentialConstructor(f, def)

	case "url_router":
		if category == "" {
			category = CategoryWorkflow
		}
		ctor, err = routerConstructor(f, def)

	default:
		return Newf(KindConfiguration, "unknown strategy type %q", typ)
	}
	if err != nil {
		return err
	}

	return r.Register(Metadata{
		Name:         def.Name,
		Description:  def.Description,
		Category:     category,
		Version:      def.Version,
		OutputSchema: def.Schema,
		ConfigSchema: configSchema,
		Source:       source,
	}, ctor)
}

// compositeConstructor builds referenced sub-strategies at construction
// time and wraps them in a composite. The caller config may override
// merge_mode.
func compositeConstructor(f *Factory, def strategyDef) (Constructor, error) {
	if len(def.Strategies) == 0 {
		return nil, Newf(KindConfiguration, "composite %s needs a strategies list", def.Name)
	}
	return func(cfg map[string]any) (Strategy, error) {
		ccfg := CompositeConfig{
			Name:       def.Name,
			MergeMode:  def.MergeMode,
			Priorities: def.Priorities,
		}
		if mode, ok := cfg["merge_mode"].(string); ok && mode != "" {
			ccfg.MergeMode = mode
		}
		return f.CreateComposite(subSpecs(def.Strategies), ccfg)
	}, nil
}

// sequentialConstructor builds referenced sub-strategies in declaration
// order and chains them. pass_results defaults to on.
func sequentialConstructor(f *Factory, def strategyDef) (Constructor, error) {
	if len(def.Strategies) == 0 {
		return nil, Newf(KindConfiguration, "sequential %s needs a strategies list", def.Name)
	}
	return func(cfg map[string]any) (Strategy, error) {
		subs := make([]Strategy, 0, len(def.Strategies))
		for _, spec := range subSpecs(def.Strategies) {
			sub, err := f.CreateFromConfig(spec)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		scfg := SequentialConfig{Name: def.Name, PassResults: true, Logger: f.logger}
		if def.PassResults != nil {
			scfg.PassResults = *def.PassResults
		}
		if pass, ok := cfg["pass_results"].(bool); ok {
			scfg.PassResults = pass
		}
		return NewSequential(subs, scfg)
	}, nil
}

// routerConstructor compiles the definition's routes into rules. Matchers
// are validated here so a bad pattern fails at registration, not dispatch.
func routerConstructor(f *Factory, def strategyDef) (Constructor, error) {
	rules := make([]RouteRule, 0, len(def.Routes))
	for i, route := range def.Routes {
		if route.Strategy == "" {
			return nil, Newf(KindConfiguration, "router %s: route %d needs a strategy", def.Name, i)
		}
		var matcher Matcher
		switch {
		case route.Domain != "" && route.Pattern != "":
			return nil, Newf(KindConfiguration, "router %s: route %d sets both domain and pattern", def.Name, i)
		case route.Domain != "":
			matcher = NewDomainMatcher(route.Domain, route.IncludeSubdomains)
		case route.Pattern != "":
			m, err := NewRegexMatcher(route.Pattern)
			if err != nil {
				return nil, Wrap(KindConfiguration, fmt.Sprintf("router %s: route %d", def.Name, i), err)
			}
			matcher = m
		default:
			return nil, Newf(KindConfiguration, "router %s: route %d needs a domain or pattern", def.Name, i)
		}
		rules = append(rules, RouteRule{
			Matcher:  matcher,
			Strategy: route.Strategy,
			Priority: route.Priority,
			Config:   route.Config,
		})
	}
	return func(cfg map[string]any) (Strategy, error) {
		return NewURLRouter(rules, f, URLRouterConfig{
			Name:           def.Name,
			Fallback:       def.Fallback,
			FallbackConfig: def.FallbackConfig,
			Logger:         f.logger,
		})
	}, nil
}

// subSpecs converts YAML sub-strategy references into factory specs.
func subSpecs(defs []subDef) []map[string]any {
	specs := make([]map[string]any, len(defs))
	for i, d := range defs {
		spec := map[string]any{"strategy": d.Strategy}
		if d.Config != nil {
			spec["config"] = d.Config
		}
		specs[i] = spec
	}
	return specs
}
