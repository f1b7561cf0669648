package main

import (
	"github.com/spf13/cobra"

	"tlstunnel/internal/confgen"
)

func newConfgenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "confgen",
		Short: "Interactively build a tunnel.ini configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return confgen.Run(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "./tunnel.ini", "path to write the generated configuration to")
	return cmd
}
