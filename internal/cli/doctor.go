package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/discovery"
	"github.com/ime-usp-br/nova-europa-sub000/internal/selector"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the project layout",
		Long: `Run diagnostic checks on the project.

This command checks:
- Configuration file
- Latest context directory
- Latest manifest
- Essential file map
- Selector template`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			results := []checkResult{
				checkConfigFile(c),
				checkContextDir(c),
				checkManifest(c),
				checkEssentialMap(c),
				checkSelectorTemplate(c),
			}
			if failed := printResults(cmd.OutOrStdout(), results); failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

type checkResult struct {
	name    string
	status  string // ok, warning, error
	message string
}

func printResults(w io.Writer, results []checkResult) int {
	failed := 0
	for _, r := range results {
		icon := "✓"
		switch r.status {
		case "warning":
			icon = "!"
		case "error":
			icon = "✗"
			failed++
		}
		fmt.Fprintf(w, "%s %s: %s\n", icon, r.name, r.message)
	}
	return failed
}

func checkConfigFile(c *CLIContext) checkResult {
	if _, err := os.Stat(c.ConfigPath); os.IsNotExist(err) {
		return checkResult{
			name:    "Config File",
			status:  "warning",
			message: fmt.Sprintf("Not found: %s (using defaults)", c.ConfigPath),
		}
	}
	return checkResult{name: "Config File", status: "ok", message: fmt.Sprintf("Found: %s", c.ConfigPath)}
}

func checkContextDir(c *CLIContext) checkResult {
	base := c.Config.ResolvePath(c.Config.Project.ContextDir)
	latest, err := discovery.LatestContextDir(base)
	if err != nil {
		return checkResult{name: "Context", status: "error", message: err.Error()}
	}
	return checkResult{name: "Context", status: "ok", message: fmt.Sprintf("Latest: %s", latest)}
}

func checkManifest(c *CLIContext) checkResult {
	m, err := c.LoadManifest("")
	if err != nil {
		return checkResult{
			name:    "Manifest",
			status:  "warning",
			message: fmt.Sprintf("%v (context is sent without budget reduction)", err),
		}
	}
	s := m.Stats()
	return checkResult{
		name:    "Manifest",
		status:  "ok",
		message: fmt.Sprintf("%s (%d files, %d without token count)", m.Path, s.Files, s.UnknownTokens),
	}
}

func checkEssentialMap(c *CLIContext) checkResult {
	m, err := c.Config.EssentialMap()
	if err != nil {
		return checkResult{name: "Essential Map", status: "error", message: err.Error()}
	}
	return checkResult{
		name:    "Essential Map",
		status:  "ok",
		message: fmt.Sprintf("%d tasks", len(m)),
	}
}

func checkSelectorTemplate(c *CLIContext) checkResult {
	tmpl, err := c.SelectorTemplate("")
	if err != nil {
		return checkResult{name: "Selector Template", status: "error", message: err.Error()}
	}
	var missing []string
	for _, p := range []string{selector.EssentialPlaceholder, selector.ManifestPlaceholder} {
		if !strings.Contains(tmpl, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return checkResult{
			name:    "Selector Template",
			status:  "warning",
			message: "missing placeholder " + strings.Join(missing, ", "),
		}
	}
	return checkResult{name: "Selector Template", status: "ok", message: "placeholders present"}
}
