package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/config"
	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
	"github.com/ime-usp-br/nova-europa-sub000/internal/selector"
)

// InitOptions init 命令选项
type InitOptions struct {
	Force bool
	// Defaults writes the built-in essential map and selector template next
	// to the config so they can be edited.
	Defaults bool
}

// NewInitCmd 创建 init 命令
func NewInitCmd() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project configuration",
		Long: `Write .llmctx.yaml at the project root and create the context and
manifest directories it points to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			return RunInit(c, opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite existing files")
	cmd.Flags().BoolVar(&opts.Defaults, "defaults", false, "also write the built-in essential map and selector template")

	return cmd
}

// RunInit 执行初始化
func RunInit(c *CLIContext, opts *InitOptions, cmd *cobra.Command) error {
	root := c.Root()
	configPath := filepath.Join(root, config.ProjectConfigName)
	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}

	cfg := *c.Config
	cfg.Project.Root = "."

	for _, dir := range []string{cfg.Project.ContextDir, cfg.Project.CommonDir, cfg.Project.ManifestDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(c.Config.ResolvePath(dir), 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if opts.Defaults {
		mapFile := filepath.Join(".llmctx", "essentials.json")
		templateFile := filepath.Join(".llmctx", "selector_prompt.txt")

		data, err := json.MarshalIndent(essentials.DefaultMap(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal essential map: %w", err)
		}
		if err := writeDefault(filepath.Join(root, mapFile), data, opts.Force); err != nil {
			return err
		}
		if err := writeDefault(filepath.Join(root, templateFile), []byte(selector.DefaultTemplate), opts.Force); err != nil {
			return err
		}
		cfg.Essentials.MapFile = filepath.ToSlash(mapFile)
		cfg.Essentials.Tasks = nil
		cfg.Selector.TemplateFile = filepath.ToSlash(templateFile)
	}

	if err := config.SaveTo(&cfg, configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized llmctx at %s\n", root)
	fmt.Fprintf(out, "  Config: %s\n", configPath)
	if opts.Defaults {
		fmt.Fprintf(out, "  Essential map: %s\n", cfg.Essentials.MapFile)
		fmt.Fprintf(out, "  Selector template: %s\n", cfg.Selector.TemplateFile)
	}
	return nil
}

// writeDefault writes data unless path exists and force is off.
func writeDefault(path string, data []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
