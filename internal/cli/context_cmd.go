package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/assembly"
	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
)

// buildOptions are the flags shared by the context and watch commands.
type buildOptions struct {
	Task           string
	Args           map[string]string
	Include        []string
	IncludeFile    string
	Exclude        []string
	Budget         int
	BudgetSet      bool
	NoBudget       bool
	ManifestPath   string
	WithEssentials bool
}

func (o *buildOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Task, "task", "t", "", "task whose essential files are always sent in full")
	cmd.Flags().StringToStringVar(&o.Args, "arg", nil, "task argument used in essential patterns (key=value, repeatable)")
	cmd.Flags().StringSliceVar(&o.Include, "include", nil, "include-list mode: relative paths to send")
	cmd.Flags().StringVar(&o.IncludeFile, "include-file", "", "read the include list from a file (JSON selector reply or one path per line)")
	cmd.Flags().StringSliceVar(&o.Exclude, "exclude", nil, "relative paths to leave out")
	cmd.Flags().IntVar(&o.Budget, "budget", 0, "input token budget (default budget.max_input_tokens)")
	cmd.Flags().BoolVar(&o.NoBudget, "no-budget", false, "send every file in full")
	cmd.Flags().StringVar(&o.ManifestPath, "manifest", "", "manifest file (default: latest in project.manifest_dir)")
	cmd.Flags().BoolVar(&o.WithEssentials, "with-essentials", true, "add the task's essential files to the include list")
}

// excludeOutput keeps the generated file out of its own input when it is
// written inside the project.
func (o *buildOptions) excludeOutput(root, output string) {
	if output == "" {
		return
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return
	}
	o.Exclude = append(o.Exclude, filepath.ToSlash(rel))
}

// NewContextCmd 创建 context 命令
func NewContextCmd() *cobra.Command {
	var (
		opts   buildOptions
		output string
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble context blocks under the token budget",
		Long: `Assemble the context for a model call.

Without --include, the latest timestamped context directory and the common
context directory are scanned. With --include or --include-file, exactly the
listed files are used (typically the reply of the selector call).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			opts.BudgetSet = cmd.Flags().Changed("budget")
			opts.excludeOutput(c.Root(), output)

			blocks, err := buildContext(c, opts)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, assembly.Render(blocks)); err != nil {
				return err
			}
			if stats {
				return printJSON(cmd.ErrOrStderr(), assembly.Summarize(blocks))
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write context to file instead of stdout")
	cmd.Flags().BoolVar(&stats, "stats", false, "print per-tier statistics to stderr")

	return cmd
}

// buildContext runs discovery and assembly for one invocation.
func buildContext(c *CLIContext, o buildOptions) ([]assembly.Block, error) {
	cfg := c.Config
	log := c.Log()

	latestDir := c.LatestDir()

	// The manifest also feeds the summary annotations of unbudgeted output.
	m, err := c.LoadManifest(o.ManifestPath)
	switch {
	case err == nil:
	case o.ManifestPath != "" || (o.BudgetSet && !o.NoBudget):
		return nil, fmt.Errorf("budgeted assembly requested: %w", err)
	case o.NoBudget:
		log.Debug().Err(err).Msg("no usable manifest, summaries not annotated")
	default:
		log.Warn().Err(err).Msg("no usable manifest, sending files without budget reduction")
	}

	var budget *int
	if m != nil && !o.NoBudget {
		limit := cfg.Budget.MaxInputTokens
		if o.BudgetSet {
			limit = o.Budget
		}
		budget = &limit
	}

	var ess essentials.PathSet
	if o.Task != "" {
		r, err := c.Resolver()
		if err != nil {
			return nil, err
		}
		ess = r.Resolve(o.Task, taskArgs(o.Args), latestDir)
		if ess.Len() == 0 {
			log.Warn().Str("task", o.Task).Msg("no essential files resolved for task")
		}
	}

	include := o.Include
	if o.IncludeFile != "" {
		fromFile, err := readIncludeFile(o.IncludeFile)
		if err != nil {
			return nil, err
		}
		include = append(include, fromFile...)
	}
	if len(include) > 0 && o.WithEssentials {
		include = withEssentials(c.Root(), ess, include)
	}

	blocks, err := assembly.Prepare(assembly.PrepareOptions{
		Root:       c.Root(),
		ContextDir: cfg.ResolvePath(cfg.Project.ContextDir),
		CommonDir:  cfg.ResolvePath(cfg.Project.CommonDir),
		LatestDir:  latestDir,
		Extensions: cfg.Discovery.Extensions,
		Include:    include,
		Exclude:    o.Exclude,
		Manifest:   m,
		Budget:     budget,
		Essentials: ess,
	})
	if err != nil {
		return nil, err
	}

	s := assembly.Summarize(blocks)
	log.Info().
		Int("blocks", s.Blocks).
		Int("essential", s.Essential).
		Int("summarized", s.Summarized).
		Int("truncated", s.Truncated).
		Int("tokens", s.Tokens).
		Msg("context assembled")
	return blocks, nil
}

// withEssentials puts the essential files ahead of the selected ones.
func withEssentials(root string, ess essentials.PathSet, include []string) []string {
	out := make([]string, 0, ess.Len()+len(include))
	for _, abs := range ess.Sorted() {
		out = append(out, essentials.RelPath(root, abs))
	}
	return append(out, include...)
}

// readIncludeFile accepts {"relevant_files": [...]}, a JSON array, or one
// path per line ("#" starts a comment).
func readIncludeFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read include file: %w", err)
	}
	trimmed := bytes.TrimSpace(data)

	if bytes.HasPrefix(trimmed, []byte("{")) {
		var reply struct {
			RelevantFiles []string `json:"relevant_files"`
		}
		if err := json.Unmarshal(trimmed, &reply); err != nil {
			return nil, fmt.Errorf("parse include file: %w", err)
		}
		return reply.RelevantFiles, nil
	}
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("parse include file: %w", err)
		}
		return list, nil
	}

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func writeOutput(stdout io.Writer, path, content string) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
