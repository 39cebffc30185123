// Package classify maps file paths to architecture layers.
package classify

import (
	"fmt"
	"strings"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// Classifier applies an ordered list of layer rules. The first matching rule wins.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules        []contract.LayerRule
	defaultLayer schema.Layer
}

// New builds a classifier from a rule set.
func New(rules contract.Rules) *Classifier {
	return &Classifier{rules: rules.LayerRules, defaultLayer: rules.DefaultLayer}
}

// Classify returns the layer of a path, falling back to the default layer and then Unknown.
func (c *Classifier) Classify(path string) schema.Layer {
	layer, _ := c.ClassifyFile(path)
	return layer
}

// ClassifyFile is Classify plus the reason a path ended up in Unknown.
// The error wraps ErrClassificationAmbiguous and is never fatal.
func (c *Classifier) ClassifyFile(path string) (schema.Layer, error) {
	normalized := Normalize(path)
	for _, rule := range c.rules {
		if rule.Pattern.MatchString(normalized) {
			return rule.Layer, nil
		}
	}
	if c.defaultLayer != "" && c.defaultLayer != schema.UnknownLayer {
		return c.defaultLayer, nil
	}
	return schema.UnknownLayer, fmt.Errorf("no layer rule matches %q: %w", path, schema.ErrClassificationAmbiguous)
}

// Normalize converts a path to the slash-separated form the rules are written against.
func Normalize(path string) string {
	path = strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
	return strings.TrimPrefix(path, "./")
}
