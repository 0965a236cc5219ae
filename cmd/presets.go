package cmd

import (
	"fmt"

	"github.com/Rana718/datagen/internal/presets"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets [name]",
	Short: "List entity presets",
	Long: `List the built-in presets, or the fields of one preset. Fields marked
with * are included when --fields is not given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, p := range presets.List() {
				color.New(color.FgCyan, color.Bold).Printf("%-14s", p.Name)
				fmt.Printf(" %s\n", p.Description)
			}
			return nil
		}

		p, err := presets.Get(args[0])
		if err != nil {
			return err
		}

		color.New(color.FgCyan, color.Bold).Printf("%s", p.Name)
		fmt.Printf(" → table %s\n", p.Table)
		for _, f := range p.Fields {
			mark := " "
			if f.Default {
				mark = "*"
			}
			source := f.Provider
			if f.Method != "" {
				source += "." + f.Method
			}
			if f.Ref != nil {
				source = fmt.Sprintf("%s.%s (falls back to %s)", f.Ref.Table, f.Ref.Column, source)
			}
			fmt.Printf("  %s %-22s %s\n", mark, f.Name, source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
