package extract

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed classifier_config.yaml
var embeddedClassifierConfig []byte

// TypeKeywords declares one content type and its keyword bag.
type TypeKeywords struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type classifierConfig struct {
	Types []TypeKeywords `yaml:"types"`
}

// Classifier scores content against per-type keyword bags and ranks the
// matching content types. Safe for concurrent use after construction.
type Classifier struct {
	types []TypeKeywords
	order map[string]int
}

// NewClassifier builds a classifier from the embedded keyword tables.
func NewClassifier() *Classifier {
	c, err := newClassifierFromYAML(embeddedClassifierConfig)
	if err != nil {
		// The embedded config is validated by tests; a decode failure here
		// is a build defect, not a runtime condition.
		panic("extract: embedded classifier config invalid: " + err.Error())
	}
	return c
}

// NewClassifierFromFile builds a classifier from a YAML keyword file of the
// same shape as the embedded one.
func NewClassifierFromFile(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Wrap(KindConfiguration, "read classifier config", err)
	}
	return newClassifierFromYAML(data)
}

// NewClassifierFromConfig builds a classifier from explicit keyword tables.
func NewClassifierFromConfig(types []TypeKeywords) (*Classifier, error) {
	if len(types) == 0 {
		return nil, New(KindConfiguration, "classifier needs at least one content type")
	}

	c := &Classifier{order: make(map[string]int, len(types))}
	for _, t := range types {
		if t.Name == "" {
			return nil, New(KindConfiguration, "classifier type with empty name")
		}
		if _, dup := c.order[t.Name]; dup {
			return nil, Newf(KindConfiguration, "classifier type %q declared twice", t.Name)
		}
		lowered := TypeKeywords{Name: t.Name, Keywords: make([]string, 0, len(t.Keywords))}
		for _, kw := range t.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				lowered.Keywords = append(lowered.Keywords, kw)
			}
		}
		c.order[t.Name] = len(c.types)
		c.types = append(c.types, lowered)
	}
	return c, nil
}

func newClassifierFromYAML(data []byte) (*Classifier, error) {
	var cfg classifierConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, Wrap(KindConfiguration, "decode classifier config", err)
	}
	return NewClassifierFromConfig(cfg.Types)
}

// Types returns the declared content types in declaration order.
func (c *Classifier) Types() []string {
	out := make([]string, len(c.types))
	for i, t := range c.types {
		out[i] = t.Name
	}
	return out
}

// Classify scores content against every keyword bag. It returns the types
// with a non-zero score ranked by confidence (declaration order breaks
// ties) and a confidence map over all declared types. Confidences sum to 1
// when anything matched; otherwise the ranking is empty and the mass is
// spread uniformly.
func (c *Classifier) Classify(content string) ([]string, map[string]float64) {
	lower := strings.ToLower(content)

	scores := make(map[string]int, len(c.types))
	total := 0
	for _, t := range c.types {
		score := 0
		for _, kw := range t.Keywords {
			score += strings.Count(lower, kw)
		}
		scores[t.Name] = score
		total += score
	}

	confidences := make(map[string]float64, len(c.types))
	if total == 0 {
		uniform := 1.0 / float64(len(c.types))
		for _, t := range c.types {
			confidences[t.Name] = uniform
		}
		return nil, confidences
	}

	ranked := make([]string, 0, len(c.types))
	for _, t := range c.types {
		confidences[t.Name] = float64(scores[t.Name]) / float64(total)
		if scores[t.Name] > 0 {
			ranked = append(ranked, t.Name)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return c.order[ranked[i]] < c.order[ranked[j]]
	})

	return ranked, confidences
}
