// Command tunnel is the tlstunnel executable: a TLS-terminating TCP
// proxy configured from a single INI file (spec.md §6.1). Its
// subcommand layout follows the teacher's single-executable-mode
// dispatch (main.go's ServerMode/ClientMode switch), reimplemented
// with github.com/spf13/cobra — wired in from the rest of the example
// pack (nabbar/golib) since the teacher itself parses os.Args by hand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tlstunnel [config-path]",
		Short: "TLS-terminating TCP tunnel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "./tunnel.ini"
			if len(args) == 1 {
				path = args[0]
			}
			return runServe(cmd, path)
		},
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newConfgenCmd())
	root.AddCommand(newVersionCmd())
	return root
}
