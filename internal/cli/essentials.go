package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
)

// NewEssentialsCmd 创建 essentials 命令
func NewEssentialsCmd() *cobra.Command {
	var (
		rawArgs   map[string]string
		listTasks bool
		absolute  bool
	)

	cmd := &cobra.Command{
		Use:   "essentials [task]",
		Short: "List the essential files resolved for a task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			r, err := c.Resolver()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if listTasks || len(args) == 0 {
				for _, task := range r.Map.Tasks() {
					fmt.Fprintln(out, task)
				}
				return nil
			}

			set := r.Resolve(args[0], taskArgs(rawArgs), c.LatestDir())
			for _, p := range set.Sorted() {
				if !absolute {
					p = essentials.RelPath(r.Root, p)
				}
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&rawArgs, "arg", nil, "task argument used in essential patterns (key=value, repeatable)")
	cmd.Flags().BoolVar(&listTasks, "tasks", false, "list the known task names")
	cmd.Flags().BoolVar(&absolute, "absolute", false, "print absolute paths")

	return cmd
}
