// Package config loads llmctx settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
)

// EnvPrefix prefixes every environment override, e.g. LLMCTX_BUDGET_MAX_INPUT_TOKENS.
const EnvPrefix = "LLMCTX"

// Config is the root configuration.
type Config struct {
	Project    ProjectConfig    `mapstructure:"project" yaml:"project"`
	Budget     BudgetConfig     `mapstructure:"budget" yaml:"budget"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery" yaml:"discovery"`
	Essentials EssentialsConfig `mapstructure:"essentials" yaml:"essentials"`
	Selector   SelectorConfig   `mapstructure:"selector" yaml:"selector"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// ProjectConfig locates the project and its context artefacts.
type ProjectConfig struct {
	Root        string `mapstructure:"root" yaml:"root"`
	ContextDir  string `mapstructure:"context_dir" yaml:"context_dir"`   // holds YYYYMMDD_HHMMSS dirs
	CommonDir   string `mapstructure:"common_dir" yaml:"common_dir"`     // shared context, optional
	ManifestDir string `mapstructure:"manifest_dir" yaml:"manifest_dir"` // holds *_manifest.json
}

// BudgetConfig holds the token ceilings.
type BudgetConfig struct {
	MaxInputTokens          int `mapstructure:"max_input_tokens" yaml:"max_input_tokens"`
	SelectorEssentialTokens int `mapstructure:"selector_essential_tokens" yaml:"selector_essential_tokens"`
	ManifestFilterTokens    int `mapstructure:"manifest_filter_tokens" yaml:"manifest_filter_tokens"`
}

// DiscoveryConfig controls directory scanning.
type DiscoveryConfig struct {
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
}

// EssentialsConfig selects the essential file map.
// MapFile wins over Tasks; Tasks are merged over the built-in map.
type EssentialsConfig struct {
	MapFile string                     `mapstructure:"map_file" yaml:"map_file"`
	Tasks   map[string]essentials.Spec `mapstructure:"tasks" yaml:"tasks,omitempty"`
}

// SelectorConfig configures the selector payload.
type SelectorConfig struct {
	TemplateFile string `mapstructure:"template_file" yaml:"template_file"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// ResolvePath resolves p against the project root unless it is absolute.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Project.Root, p)
}

// EssentialMap returns the effective essential file map.
func (c *Config) EssentialMap() (essentials.Map, error) {
	if c.Essentials.MapFile != "" {
		path, err := ExpandPath(c.Essentials.MapFile)
		if err != nil {
			return nil, err
		}
		return essentials.LoadMapFile(c.ResolvePath(path))
	}
	m := essentials.DefaultMap()
	for task, spec := range c.Essentials.Tasks {
		m[task] = spec
	}
	return m, nil
}

var (
	globalConfig *Config
	configPath   string
	mu           sync.RWMutex
)

// Load 加载配置文件
// 优先级: ENV (.env included) > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		expandedPath, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		configPath = expandedPath

		viper.SetConfigFile(expandedPath)
		if err := viper.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; a broken one is an error.
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", expandedPath, err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	root, err := ExpandPath(cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	// A relative root written in the config file is relative to that file.
	if !filepath.IsAbs(root) && configPath != "" && viper.InConfig("project.root") {
		root = filepath.Join(filepath.Dir(configPath), root)
	}
	if cfg.Project.Root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding the real environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// GetConfig 获取当前配置
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

// Path returns the config file path of the last Load.
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return configPath
}

// Get 获取任意配置键值
func Get(key string) any {
	return viper.Get(key)
}

// GetInt 获取整数配置值
func GetInt(key string) int {
	return viper.GetInt(key)
}

// Set 设置配置值并持久化
func Set(key string, value any) error {
	mu.Lock()
	defer mu.Unlock()

	viper.Set(key, value)
	if configPath != "" {
		return save()
	}
	return nil
}

// Save 保存配置到文件
func Save() error {
	mu.Lock()
	defer mu.Unlock()
	return save()
}

// save 内部保存函数，调用者需要持有锁
func save() error {
	if configPath == "" {
		return errors.New("config path not set")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// SaveTo 保存配置到指定路径
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Reset 重置配置（主要用于测试）
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	configPath = ""
	viper.Reset()
}
