package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ScottSallinen/lollipop-gg/algorithms"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered algorithms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, name := range algorithms.Names() {
			a, _ := algorithms.Lookup(name)
			p := a.Program()
			params := make([]string, len(p.Params))
			for i, prm := range p.Params {
				params[i] = prm.Name
			}
			fmt.Fprintf(out, "%-14s %-11s %-4s %s\n", name, p.Schedule, p.Direction, strings.Join(params, " "))
		}
		return nil
	},
}
