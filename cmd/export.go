package cmd

import (
	"context"
	"fmt"

	"github.com/Rana718/datagen/internal/config"
	"github.com/spf13/cobra"
)

var (
	exportCSV    bool
	exportJSON   bool
	exportSQLite bool
)

var exportCmd = &cobra.Command{
	Use:   "export [tables...]",
	Short: "Export stored tables to files",
	Long: `Export tables from the local store to the export directory. With no
table names every stored table is exported. CSV is the default format.`,
	Example: `  datagen export
  datagen export customers orders --json
  datagen export --sqlite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := "csv"
		if exportJSON {
			format = "json"
		} else if exportSQLite {
			format = "sqlite"
		}

		ctx := context.Background()
		e, _, err := openEngine(ctx, []string{config.SinkStore})
		if err != nil {
			return err
		}
		defer e.Close()

		paths, err := e.ExportAll(ctx, args, format)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if len(paths) == 0 {
			fmt.Println("Nothing to export")
			return nil
		}
		for _, path := range paths {
			fmt.Printf("✅ Export completed: %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&exportCSV, "csv", false, "Export as CSV (default)")
	exportCmd.Flags().BoolVarP(&exportJSON, "json", "j", false, "Export as JSON")
	exportCmd.Flags().BoolVarP(&exportSQLite, "sqlite", "s", false, "Export as a SQLite database file")
	exportCmd.MarkFlagsMutuallyExclusive("csv", "json", "sqlite")
}
