package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/assembly"
	"github.com/ime-usp-br/nova-europa-sub000/internal/watch"
)

// NewWatchCmd 创建 watch 命令
func NewWatchCmd() *cobra.Command {
	var (
		opts     buildOptions
		output   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the context file whenever context or manifest files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			opts.BudgetSet = cmd.Flags().Changed("budget")
			opts.excludeOutput(c.Root(), output)
			log := c.Log()

			rebuild := func() error {
				blocks, err := buildContext(c, opts)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, assembly.Render(blocks))
			}
			if err := rebuild(); err != nil {
				return err
			}

			cfg := c.Config
			contextBase := cfg.ResolvePath(cfg.Project.ContextDir)
			paths := []string{contextBase, cfg.ResolvePath(cfg.Project.ManifestDir)}
			if latest := c.LatestDir(); latest != "" {
				paths = append(paths, filepath.Join(contextBase, latest))
			}
			if cfg.Project.CommonDir != "" {
				paths = append(paths, cfg.ResolvePath(cfg.Project.CommonDir))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Strs("paths", paths).Str("output", output).Msg("watching for changes")
			outAbs, err := filepath.Abs(output)
			if err != nil {
				return err
			}
			return watch.Run(ctx, paths, func(changed []string) {
				// Writing the output must not trigger another rebuild.
				if len(changed) == 1 && changed[0] == outAbs {
					return
				}
				log.Info().Strs("changed", changed).Msg("rebuilding context")
				if err := rebuild(); err != nil {
					log.Error().Err(err).Msg("rebuild failed")
				}
			}, watch.Options{
				Extensions: append([]string{".json"}, cfg.Discovery.Extensions...),
				Debounce:   debounce,
				Logger:     *log,
			})
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "context file rewritten on every change")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before rebuilding")

	return cmd
}
