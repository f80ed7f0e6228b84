package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/script-agent/internal/extraction"
)

func newPromptsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List available prompts and providers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := a.promptLoader()
			names, err := loader.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Prompts:")
			for _, name := range names {
				p, err := loader.Load(name)
				if err != nil {
					return err
				}
				marker := " "
				if name == a.cfg.Prompt.Name {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, " %s %s  sha256:%s\n", marker, name, p.SHA256[:12])
			}

			_, _ = fmt.Fprintln(out, "Providers:")
			for _, name := range extraction.Names() {
				_, _ = fmt.Fprintf(out, "   %s\n", name)
			}
			return nil
		},
	}
}
