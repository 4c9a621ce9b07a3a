package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ime-usp-br/nova-europa-sub000/internal/config"
	"github.com/ime-usp-br/nova-europa-sub000/internal/discovery"
	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
	"github.com/ime-usp-br/nova-europa-sub000/internal/manifest"
	"github.com/ime-usp-br/nova-europa-sub000/internal/selector"
	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

// CLIContext CLI 上下文
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zerolog.Logger
	RunID      string
	Verbose    bool
	Quiet      bool
}

// NewCLIContext 创建 CLI 上下文
func NewCLIContext(cfg *config.Config, configPath string, log *zerolog.Logger, runID string, verbose, quiet bool) *CLIContext {
	return &CLIContext{
		Config:     cfg,
		ConfigPath: configPath,
		Logger:     log,
		RunID:      runID,
		Verbose:    verbose,
		Quiet:      quiet,
	}
}

// Log 获取 Logger
func (c *CLIContext) Log() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logger.Get()
}

// Root returns the absolute project root.
func (c *CLIContext) Root() string {
	return c.Config.Project.Root
}

// Resolver builds the essential file resolver from the configured map.
func (c *CLIContext) Resolver() (*essentials.Resolver, error) {
	m, err := c.Config.EssentialMap()
	if err != nil {
		return nil, err
	}
	return essentials.NewResolver(c.Root(), m)
}

// LatestDir returns the newest context directory name, or "" when none exists.
func (c *CLIContext) LatestDir() string {
	base := c.Config.ResolvePath(c.Config.Project.ContextDir)
	name, err := discovery.LatestContextDir(base)
	if err != nil {
		c.Log().Warn().Err(err).Msg("no context directory, latest_dir_name is empty")
		return ""
	}
	return name
}

// LoadManifest loads path, or the latest manifest of the manifest dir.
func (c *CLIContext) LoadManifest(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.Load(path)
	}
	return manifest.LoadLatest(c.Config.ResolvePath(c.Config.Project.ManifestDir))
}

// SelectorTemplate reads the selector prompt from path, the configured
// template file, or falls back to the built-in template.
func (c *CLIContext) SelectorTemplate(path string) (string, error) {
	if path == "" {
		path = c.Config.ResolvePath(c.Config.Selector.TemplateFile)
	}
	if path == "" {
		return selector.DefaultTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read selector template: %w", err)
	}
	return string(data), nil
}

// taskArgs converts --arg key=value pairs into resolver arguments.
func taskArgs(raw map[string]string) essentials.Args {
	args := make(essentials.Args, len(raw))
	for k, v := range raw {
		args[k] = v
	}
	return args
}
