package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/manifest"
)

// NewManifestCmd 创建 manifest 命令
func NewManifestCmd() *cobra.Command {
	var (
		manifestPath string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Show the manifest in use and its statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			m, err := c.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			s := m.Stats()

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), struct {
					Path string `json:"path"`
					manifest.Stats
				}{Path: m.Path, Stats: s})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Manifest:       %s\n", m.Path)
			fmt.Fprintf(out, "Files:          %d\n", s.Files)
			fmt.Fprintf(out, "With summary:   %d\n", s.WithSummary)
			fmt.Fprintf(out, "Unknown tokens: %d\n", s.UnknownTokens)
			fmt.Fprintf(out, "Known tokens:   %d\n", s.KnownTokens)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest file (default: latest in project.manifest_dir)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
