package cmd

import (
	"context"
	"fmt"

	"github.com/Rana718/datagen/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tablesLimit int

var tablesCmd = &cobra.Command{
	Use:   "tables [name]",
	Short: "List stored tables or preview one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, _, err := openEngine(ctx, []string{config.SinkStore})
		if err != nil {
			return err
		}
		defer e.Close()

		if len(args) == 1 {
			t, err := e.Table(ctx, args[0])
			if err != nil {
				return err
			}
			printTable(t, tablesLimit)
			return nil
		}

		names, err := e.Tables(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			color.Yellow("No tables yet. Run 'datagen generate' to create one.")
			return nil
		}
		for _, name := range names {
			t, err := e.Table(ctx, name)
			if err != nil {
				return err
			}
			color.New(color.FgCyan, color.Bold).Printf("%-24s", name)
			fmt.Printf(" %d rows, %d columns\n", len(t.Rows), len(t.Columns))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)

	tablesCmd.Flags().IntVarP(&tablesLimit, "limit", "l", 20, "Rows to show")
}
