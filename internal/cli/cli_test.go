package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ime-usp-br/nova-europa-sub000/internal/config"
)

const latest = "20240102_030405"

type project struct {
	t      *testing.T
	root   string
	config string
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	p := &project{t: t, root: root, config: filepath.Join(root, "llmctx.yaml")}

	p.write("context_llm/code/20231231_000000/stale.txt", "stale")
	p.write("context_llm/code/"+latest+"/git_log.txt", strings.Repeat("commit line\n", 400))
	p.write("context_llm/code/"+latest+"/github_issue_7_details.json", `{"number":7}`)
	p.write("context_llm/common/guide.md", "guide")
	p.write("docs/guia_de_desenvolvimento.md", "dev guide")
	p.write("scripts/data/"+latest+"_manifest.json", `{
  "files": {
    "context_llm/code/`+latest+`/git_log.txt": {"type": "context_code", "token_count": 1200, "summary": "recent commits"},
    "context_llm/common/guide.md": {"type": "context_common", "token_count": 2, "summary": null},
    "docs/guia_de_desenvolvimento.md": {"type": "doc", "token_count": 3, "summary": "guide"},
    "app/Big.php": {"type": "code", "token_count": 999999, "summary": "too big"},
    "app/Small.php": {"type": "code", "token_count": 10, "summary": "small"}
  }
}`)
	p.write("llmctx.yaml", "project:\n  root: "+root+"\nlog:\n  level: error\n")

	t.Cleanup(config.Reset)
	return p
}

func (p *project) write(rel, content string) {
	p.t.Helper()
	path := filepath.Join(p.root, filepath.FromSlash(rel))
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0644))
}

func (p *project) run(args ...string) (string, string, error) {
	p.t.Helper()
	config.Reset()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", p.config}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestContextCmd_Budgeted(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run("context", "--task", "resolve-ac", "--arg", "issue=7", "--budget", "200")
	require.NoError(t, err)

	assert.Contains(t, out, "--- START OF ESSENTIAL FILE context_llm/code/"+latest+"/git_log.txt ---")
	assert.Contains(t, out, "--- START OF ESSENTIAL FILE context_llm/code/"+latest+"/github_issue_7_details.json ---")
	assert.Contains(t, out, "--- START OF FILE context_llm/common/guide.md ---")
	assert.NotContains(t, out, "stale")
	assert.Equal(t, 2, strings.Count(out, "--- START OF ESSENTIAL FILE"))
}

func TestContextCmd_SummaryTier(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run("context", "--budget", "100")
	require.NoError(t, err)

	assert.Contains(t, out, "--- START OF FILE context_llm/code/"+latest+"/git_log.txt ---\nrecent commits\n")
	assert.NotContains(t, out, "commit line")
}

func TestContextCmd_NoBudget(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run("context", "--no-budget")
	require.NoError(t, err)

	assert.Contains(t, out, "--- SUMMARY ---\nrecent commits\n--- END SUMMARY ---\ncommit line")
	assert.NotContains(t, out, "TRUNCATED")
}

func TestContextCmd_IncludeFileAndStats(t *testing.T) {
	p := newProject(t)
	p.write("app/Small.php", "<?php echo 1;")
	p.write("reply.json", `{"relevant_files": ["app/Small.php", "missing.php"]}`)
	outFile := filepath.Join(p.root, "out.txt")

	_, stderr, err := p.run("context",
		"--task", "analyze-ac",
		"--include-file", filepath.Join(p.root, "reply.json"),
		"--stats",
		"-o", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "--- START OF ESSENTIAL FILE docs/guia_de_desenvolvimento.md ---"), out)
	assert.Contains(t, out, "--- START OF FILE app/Small.php ---\n<?php echo 1;\n")
	assert.NotContains(t, out, "missing.php")
	assert.Contains(t, stderr, `"essential": 1`)
}

func TestContextCmd_ExplicitManifestMissing(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run("context", "--manifest", filepath.Join(p.root, "nope.json"))
	require.Error(t, err)
}

func TestSelectorCmd(t *testing.T) {
	p := newProject(t)
	p.write("template.txt", "ESS:\n{{ESSENTIAL_FILES_CONTENT}}\nMAN:\n{{REMAINING_MANIFEST_JSON}}")

	out, _, err := p.run("selector", "-t", "analyze-ac", "--arg", "issue=7",
		"--template", filepath.Join(p.root, "template.txt"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "ESS:\n--- START OF ESSENTIAL FILE"), out)
	assert.Contains(t, out, `"app/Small.php"`)
	assert.NotContains(t, out, `"app/Big.php"`)
	assert.NotContains(t, out, `"docs/guia_de_desenvolvimento.md": {`)
}

func TestSelectorCmd_RequiresTask(t *testing.T) {
	p := newProject(t)
	_, _, err := p.run("selector")
	assert.Error(t, err)
}

func TestEssentialsCmd(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run("essentials", "resolve-ac", "--arg", "issue=7")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"context_llm/code/" + latest + "/git_log.txt",
		"context_llm/code/" + latest + "/github_issue_7_details.json",
		"docs/guia_de_desenvolvimento.md",
	}, strings.Fields(out))

	out, _, err = p.run("essentials", "--tasks")
	require.NoError(t, err)
	assert.Contains(t, strings.Fields(out), "update-doc")
}

func TestManifestCmd(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run("manifest", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"files": 5`)
	assert.Contains(t, out, latest+"_manifest.json")
}

func TestConfigCmd(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run("config", "set", "budget.max_input_tokens", "1234")
	require.NoError(t, err)

	out, _, err := p.run("config", "get", "budget.max_input_tokens")
	require.NoError(t, err)
	assert.Equal(t, "1234", strings.TrimSpace(out))

	out, _, err = p.run("config", "path")
	require.NoError(t, err)
	assert.Equal(t, p.config, strings.TrimSpace(out))

	out, _, err = p.run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_input_tokens: 1234")
}

func TestVersionCmd(t *testing.T) {
	p := newProject(t)
	out, _, err := p.run("version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "llmctx "))
}

func TestReadIncludeFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"selector reply", `{"relevant_files": ["a.php", "b.md"]}`, []string{"a.php", "b.md"}},
		{"json array", `["x.txt"]`, []string{"x.txt"}},
		{"lines", "# picked\na.php\n\n  b.md  \n", []string{"a.php", "b.md"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_"))
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			got, err := readIncludeFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := readIncludeFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestWithEssentials(t *testing.T) {
	root := t.TempDir()
	got := withEssentials(root, nil, []string{"a.php"})
	assert.Equal(t, []string{"a.php"}, got)
}

func TestInitCmd(t *testing.T) {
	t.Cleanup(config.Reset)
	dir := t.TempDir()
	run := func(args ...string) error {
		config.Reset()
		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "absent.yaml"), "--root", dir, "-q"}, args...))
		return cmd.Execute()
	}

	require.NoError(t, run("init", "--defaults"))
	assert.DirExists(t, filepath.Join(dir, "context_llm", "code"))
	assert.DirExists(t, filepath.Join(dir, "scripts", "data"))
	assert.FileExists(t, filepath.Join(dir, ".llmctx", "selector_prompt.txt"))

	config.Reset()
	cfg, err := config.Load(filepath.Join(dir, config.ProjectConfigName))
	require.NoError(t, err)
	assert.Equal(t, ".llmctx/essentials.json", cfg.Essentials.MapFile)
	m, err := cfg.EssentialMap()
	require.NoError(t, err)
	assert.Contains(t, m, "resolve-ac")

	assert.Error(t, run("init"), "existing config must not be overwritten")
	assert.NoError(t, run("init", "--force"))
}

func TestDoctorCmd(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run("doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Context: Latest: "+latest)
	assert.Contains(t, out, "✓ Essential Map:")

	require.NoError(t, os.RemoveAll(filepath.Join(p.root, "context_llm", "code")))
	out, _, err = p.run("doctor")
	assert.Error(t, err)
	assert.Contains(t, out, "✗ Context:")
}

func TestContextCmd_OutputInsideScannedDirIsExcluded(t *testing.T) {
	p := newProject(t)
	outFile := filepath.Join(p.root, "context_llm", "common", "assembled.md")

	_, _, err := p.run("context", "--no-budget", "-o", outFile)
	require.NoError(t, err)
	_, _, err = p.run("context", "--no-budget", "-o", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "context_llm/common/assembled.md")
	assert.Contains(t, string(data), "--- START OF FILE context_llm/common/guide.md ---")
}

func TestExcludeOutput(t *testing.T) {
	root := t.TempDir()

	var o buildOptions
	o.excludeOutput(root, filepath.Join(root, "context_llm", "out.txt"))
	o.excludeOutput(root, filepath.Join(t.TempDir(), "elsewhere.txt"))
	o.excludeOutput(root, "")
	assert.Equal(t, []string{"context_llm/out.txt"}, o.Exclude)
}
