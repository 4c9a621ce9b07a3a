// Package essentials resolves the per-task set of files that must always be
// sent in full, and loads their content under a token ceiling.
package essentials

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/jsonc"
)

// Spec lists the path patterns that make up one task's essential files.
// Args patterns are bound to a CLI argument and only resolve when that
// argument is set. Static patterns always resolve.
type Spec struct {
	Args   map[string]string `json:"args" mapstructure:"args" yaml:"args"`
	Static []string          `json:"static" mapstructure:"static" yaml:"static"`
}

// Map holds essential specs keyed by task name.
type Map map[string]Spec

// Tasks returns the task names in sorted order.
func (m Map) Tasks() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const issueDetails = "context_llm/code/{latest_dir_name}/github_issue_{issue}_details.json"

// DefaultMap returns the built-in essential file map.
func DefaultMap() Map {
	return Map{
		"analyze-ac": {
			Args:   map[string]string{"issue": issueDetails},
			Static: []string{"docs/guia_de_desenvolvimento.md", "docs/padroes_codigo_boas_praticas.md"},
		},
		"resolve-ac": {
			Args: map[string]string{"issue": issueDetails},
			Static: []string{
				"docs/guia_de_desenvolvimento.md",
				"docs/padroes_codigo_boas_praticas.md",
				"context_llm/code/{latest_dir_name}/git_log.txt",
			},
		},
		"commit-mesage": {
			Static: []string{
				"context_llm/code/{latest_dir_name}/git_diff_cached.txt",
				"context_llm/code/{latest_dir_name}/git_log.txt",
				"docs/guia_de_desenvolvimento.md",
			},
		},
		"create-pr": {
			Args: map[string]string{"issue": issueDetails},
			Static: []string{
				"context_llm/code/{latest_dir_name}/git_log.txt",
				"docs/guia_de_desenvolvimento.md",
			},
		},
		"update-doc": {
			Args: map[string]string{
				"issue":    issueDetails,
				"doc_file": "{doc_file}",
			},
			Static: []string{"README.md", "CHANGELOG.md", "docs/guia_de_desenvolvimento.md"},
		},
		"review-issue": {
			Args:   map[string]string{"issue": issueDetails},
			Static: []string{"docs/padroes_codigo_boas_praticas.md"},
		},
		"create-test-sub-issue": {
			Args:   map[string]string{"issue": issueDetails},
			Static: []string{"docs/padroes_codigo_boas_praticas.md"},
		},
		"fix-phpstan": {
			Static: []string{"context_llm/code/{latest_dir_name}/phpstan_analysis.txt"},
		},
		"fix-artisan-test": {
			Static: []string{"context_llm/code/{latest_dir_name}/artisan_test_output.txt"},
		},
		"fix-artisan-dusk": {
			Static: []string{"context_llm/code/{latest_dir_name}/dusk_test_results.txt"},
		},
	}
}

// ParseMap decodes an essential map document. Comments and trailing commas
// are accepted.
func ParseMap(data []byte) (Map, error) {
	var m Map
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parse essential map: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("parse essential map: document is not an object")
	}
	return m, nil
}

// LoadMapFile reads an essential map from a JSON or JSONC file.
func LoadMapFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read essential map %s: %w", path, err)
	}
	return ParseMap(data)
}
