package essentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMap_JSONC(t *testing.T) {
	data := `{
		// issue-driven task
		"resolve-ac": {
			"args": {"issue": "context_llm/code/{latest_dir_name}/github_issue_{issue}_details.json"},
			"static": ["docs/guia_de_desenvolvimento.md",],
		},
		"commit-mesage": {"static": []},
	}`

	m, err := ParseMap([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"commit-mesage", "resolve-ac"}, m.Tasks())
	assert.Equal(t, []string{"docs/guia_de_desenvolvimento.md"}, m["resolve-ac"].Static)
	assert.Contains(t, m["resolve-ac"].Args["issue"], "{issue}")
}

func TestParseMap_Invalid(t *testing.T) {
	_, err := ParseMap([]byte(`["not", "a", "map"]`))
	assert.Error(t, err)

	_, err = ParseMap([]byte(`null`))
	assert.Error(t, err)
}

func TestLoadMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essentials.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"t": {"static": ["a.md"]}}`), 0644))

	m, err := LoadMapFile(path)
	require.NoError(t, err)
	assert.Equal(t, Spec{Static: []string{"a.md"}}, m["t"])

	_, err = LoadMapFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefaultMap(t *testing.T) {
	m := DefaultMap()
	for _, task := range []string{"resolve-ac", "commit-mesage", "update-doc", "create-pr"} {
		_, ok := m[task]
		assert.True(t, ok, "missing task %s", task)
	}
	assert.Equal(t, "{doc_file}", m["update-doc"].Args["doc_file"])
}
