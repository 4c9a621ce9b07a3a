package config

import "github.com/spf13/viper"

// Default token ceilings.
const (
	DefaultMaxInputTokens          = 180000
	DefaultSelectorEssentialTokens = 150000
	DefaultManifestFilterTokens    = 200000
)

// SetDefaults 设置所有配置项的默认值
func SetDefaults() {
	// Project 配置
	viper.SetDefault("project.root", ".")
	viper.SetDefault("project.context_dir", "context_llm/code")
	viper.SetDefault("project.common_dir", "context_llm/common")
	viper.SetDefault("project.manifest_dir", "scripts/data")

	// Budget 配置
	viper.SetDefault("budget.max_input_tokens", DefaultMaxInputTokens)
	viper.SetDefault("budget.selector_essential_tokens", DefaultSelectorEssentialTokens)
	viper.SetDefault("budget.manifest_filter_tokens", DefaultManifestFilterTokens)

	// Discovery 配置
	viper.SetDefault("discovery.extensions", []string{".txt", ".json", ".md"})

	// Essentials / Selector 配置
	viper.SetDefault("essentials.map_file", "")
	viper.SetDefault("selector.template_file", "")

	// Log 配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "")
	viper.SetDefault("log.file", "")
}
