package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rana718/datagen/internal/config"
	"github.com/Rana718/datagen/internal/engine"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	queryTarget  string
	queryFile    bool
	queryTimeout time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query <sql|file>",
	Short: "Run raw SQL against the local store or the database",
	Long: `Run one or more SQL statements against the local store or the configured
database and print any rows they return. The argument is read as a file
when one exists at that path.`,
	Example: `  datagen query "SELECT COUNT(*) FROM customers"
  datagen query --target database scripts/cleanup.sql`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, source, err := readQuery(args[0], queryFile)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()

		s, err := openQueryTarget(ctx, cfg, queryTarget)
		if err != nil {
			return err
		}
		defer s.Close()

		q, ok := s.(sink.Querier)
		if !ok {
			return fmt.Errorf("%s does not run SQL", s.Name())
		}

		fmt.Printf("📄 Executing %s\n", source)
		fmt.Printf("🎯 Target: %s\n\n", s.Name())

		results, err := sink.RunScript(ctx, q, content)
		for i, res := range results {
			printQueryResult(i+1, res)
		}
		if err != nil {
			return err
		}

		color.Green("🎉 %d statement(s) executed successfully", len(results))
		return nil
	},
}

// readQuery returns the SQL to run and a label for it. Without forceFile,
// input is a path only when that file exists.
func readQuery(input string, forceFile bool) (string, string, error) {
	if _, err := os.Stat(input); err == nil || forceFile {
		content, err := os.ReadFile(input)
		if errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("SQL file not found: %s", input)
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to read SQL file: %w", err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return "", "", fmt.Errorf("SQL file is empty: %s", input)
		}
		return string(content), "SQL file " + input, nil
	}

	if strings.TrimSpace(input) == "" {
		return "", "", fmt.Errorf("SQL query is empty")
	}
	return input, "SQL query", nil
}

func openQueryTarget(ctx context.Context, cfg *config.Config, target string) (sink.Sink, error) {
	switch target {
	case config.SinkStore, config.SinkDatabase:
		return engine.OpenSink(ctx, cfg, target)
	default:
		return nil, fmt.Errorf("unknown query target: %s (use store or database)", target)
	}
}

func printQueryResult(n int, res *sink.QueryResult) {
	if res.Columns == nil {
		fmt.Printf("✅ Statement %d executed (%d row(s) affected)\n", n, res.RowsAffected)
		return
	}

	fmt.Printf("✅ Statement %d returned %d row(s)\n", n, len(res.Rows))
	if len(res.Rows) > 0 {
		printResultsTable(res.Columns, res.Rows)
	}
	fmt.Println()
}

// printResultsTable draws rows in a box, one column per result column.
func printResultsTable(columns []string, rows [][]any) {
	widths := make([]int, len(columns))
	cells := make([][]string, len(rows))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i := range columns {
			v := "NULL"
			if i < len(row) && row[i] != nil {
				v = truncate(fmt.Sprintf("%v", row[i]), 40)
			}
			cells[r][i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	rule := func(left, mid, right string) {
		fmt.Print(left)
		for i, w := range widths {
			fmt.Print(strings.Repeat("─", w+2))
			if i < len(widths)-1 {
				fmt.Print(mid)
			}
		}
		fmt.Println(right)
	}

	rule("┌", "┬", "┐")
	fmt.Print("│")
	for i, col := range columns {
		fmt.Printf(" %-*s │", widths[i], col)
	}
	fmt.Println()
	rule("├", "┼", "┤")
	for _, row := range cells {
		fmt.Print("│")
		for i, v := range row {
			fmt.Printf(" %-*s │", widths[i], v)
		}
		fmt.Println()
	}
	rule("└", "┴", "┘")
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryTarget, "target", "t", config.SinkStore, "Where to run the SQL (store, database)")
	queryCmd.Flags().BoolVarP(&queryFile, "file", "f", false, "Treat the argument as a file path")
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 5*time.Minute, "Give up after this long")
}
