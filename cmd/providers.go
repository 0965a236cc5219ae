package cmd

import (
	"fmt"

	"github.com/Rana718/datagen/internal/registry"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers [provider]",
	Short: "List field generators",
	Long:  `List every provider, or the methods and parameters of one provider.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, p := range registry.Providers() {
				color.New(color.FgCyan, color.Bold).Printf("%-12s", p.Name)
				fmt.Printf(" %s\n", p.Description)
			}
			return nil
		}

		methods, err := registry.ListMethods(args[0])
		if err != nil {
			return err
		}

		for i, m := range methods {
			name := m.Name
			if i == 0 {
				name += " (default)"
			}
			color.New(color.FgCyan, color.Bold).Printf("%s.%s", args[0], name)
			color.New(color.FgYellow).Printf(" → %s\n", m.Returns)
			fmt.Printf("    %s\n", m.Description)
			for _, p := range m.Params {
				line := fmt.Sprintf("      %s (%s)", p.Name, p.Kind)
				if p.Required {
					line += " required"
				}
				if p.Default != "" {
					line += fmt.Sprintf(" default=%s", p.Default)
				}
				if p.Min != nil {
					line += fmt.Sprintf(" min=%g", *p.Min)
				}
				if p.Max != nil {
					line += fmt.Sprintf(" max=%g", *p.Max)
				}
				if p.Description != "" {
					line += "  " + p.Description
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
