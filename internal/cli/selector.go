package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/selector"
)

// NewSelectorCmd 创建 selector 命令
func NewSelectorCmd() *cobra.Command {
	var (
		task         string
		rawArgs      map[string]string
		templatePath string
		manifestPath string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "selector",
		Short: "Build the payload of the file-selection call",
		Long: `Print the prompt for the preliminary model call that picks relevant files.
The essential files of the task are embedded in full (up to
budget.selector_essential_tokens) together with the remaining manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			if task == "" {
				return fmt.Errorf("--task is required")
			}

			m, err := c.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			tmpl, err := c.SelectorTemplate(templatePath)
			if err != nil {
				return err
			}
			r, err := c.Resolver()
			if err != nil {
				return err
			}

			b := &selector.Builder{
				Resolver:             r,
				EssentialTokens:      c.Config.Budget.SelectorEssentialTokens,
				ManifestFilterTokens: c.Config.Budget.ManifestFilterTokens,
			}
			payload, err := b.Build(task, taskArgs(rawArgs), c.LatestDir(), m, tmpl)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, payload)
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "task name")
	cmd.Flags().StringToStringVar(&rawArgs, "arg", nil, "task argument used in essential patterns (key=value, repeatable)")
	cmd.Flags().StringVar(&templatePath, "template", "", "selector prompt template (default: selector.template_file or built-in)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest file (default: latest in project.manifest_dir)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write payload to file instead of stdout")

	return cmd
}
