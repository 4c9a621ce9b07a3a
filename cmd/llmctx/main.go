// Command llmctx assembles token-budgeted context for language model calls.
package main

import (
	"fmt"
	"os"

	"github.com/ime-usp-br/nova-europa-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
