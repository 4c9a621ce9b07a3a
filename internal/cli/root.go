// Package cli wires the llmctx commands.
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/config"
	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string
	Root       string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// contextKey CLI 上下文键
type contextKey struct{}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	globalFlags = GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "llmctx",
		Short: "Assemble token-budgeted LLM context from project files",
		Long: `llmctx builds the textual context sent to a language model call.
It resolves the essential files of a task, reads the project manifest and
fits the remaining files into the input token budget by sending them in
full, as their manifest summary, or truncated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}

			configPath := globalFlags.ConfigPath
			if configPath == "" {
				var err error
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if globalFlags.Root != "" {
				if cfg.Project.Root, err = filepath.Abs(globalFlags.Root); err != nil {
					return fmt.Errorf("resolve --root: %w", err)
				}
			}

			logLevel := cfg.Log.Level
			if globalFlags.Verbose {
				logLevel = "debug"
			}
			if globalFlags.Quiet {
				logLevel = "error"
			}
			if err := logger.Init(logger.LogConfig{
				Level:  logLevel,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
			}); err != nil {
				return err
			}

			runID := uuid.NewString()
			log := logger.With(map[string]any{"run_id": runID, "cmd": cmd.Name()})
			logger.Replace(*log)

			cliCtx := NewCLIContext(cfg, configPath, log, runID, globalFlags.Verbose, globalFlags.Quiet)
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if GetCLIContext(cmd) != nil {
				return logger.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Root, "root", "", "project root (overrides project.root)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "quiet mode")

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewDoctorCmd())
	rootCmd.AddCommand(NewContextCmd())
	rootCmd.AddCommand(NewSelectorCmd())
	rootCmd.AddCommand(NewEssentialsCmd())
	rootCmd.AddCommand(NewManifestCmd())
	rootCmd.AddCommand(NewWatchCmd())

	return rootCmd
}

// GetCLIContext 从命令上下文获取 CLI 上下文
func GetCLIContext(cmd *cobra.Command) *CLIContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cliCtx, ok := ctx.Value(contextKey{}).(*CLIContext)
	if !ok {
		return nil
	}
	return cliCtx
}

func mustCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	c := GetCLIContext(cmd)
	if c == nil {
		return nil, fmt.Errorf("cli context not initialized")
	}
	return c, nil
}
