package category

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/synthvault/catalog/internal/types"
)

// ruleFile is the on-disk shape of an automatic-rule file: a flat list
// of category rules the automatic categorizer (an external collaborator
// per spec.md §6) would otherwise hand the registry in-process.
type ruleFile struct {
	Rules []types.CategoryRule `yaml:"rules"`
}

// LoadRuleFile reads an automatic-rule set from a YAML file on disk.
func LoadRuleFile(path string) ([]types.CategoryRule, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied rule file path
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}
	var parsed ruleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing rule file %s: %w", path, err)
	}
	return parsed.Rules, nil
}

// staticCategorizer adapts an in-memory rule slice to the
// types.AutomaticCategorizer contract, for callers that already loaded
// or constructed their rules.
type staticCategorizer struct {
	rules []types.CategoryRule
}

// NewStaticCategorizer wraps a fixed rule slice as an
// types.AutomaticCategorizer.
func NewStaticCategorizer(rules []types.CategoryRule) types.AutomaticCategorizer {
	return staticCategorizer{rules: rules}
}

func (s staticCategorizer) Rules() []types.CategoryRule { return s.rules }
