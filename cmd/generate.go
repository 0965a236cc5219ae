package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rana718/datagen/internal/engine"
	"github.com/Rana718/datagen/internal/presets"
	"github.com/Rana718/datagen/internal/schema"
	"github.com/Rana718/datagen/internal/session"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	genPreset  string
	genFields  []string
	genRefs    map[string]string
	genTable   string
	genRows    int
	genMode    string
	genSinks   []string
	genSeed    int64
	genPreview int
)

var generateCmd = &cobra.Command{
	Use:   "generate [schema files...]",
	Short: "Generate synthetic tables",
	Long: `Generate one table per schema file, or one table from a preset.

Schema files are YAML or JSON documents with a table name and an ordered
list of fields. Several files are generated in reference order, so a file
may reference a table defined by another file in the same call.`,
	Example: `  datagen generate schemas/customers.yaml schemas/orders.yaml --rows 500
  datagen generate --preset customers --rows 100
  datagen generate --preset transactions --fields transaction_id,customer_id,amount --ref customers=customers_eu`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genPreset == "" && len(args) == 0 {
			return fmt.Errorf("provide schema files or --preset")
		}
		if genPreset != "" && len(args) > 0 {
			return fmt.Errorf("--preset cannot be combined with schema files")
		}

		mode, err := sink.ParseMode(genMode)
		if err != nil {
			return err
		}

		ctx := context.Background()
		e, _, err := openEngine(ctx, genSinks)
		if err != nil {
			return err
		}
		defer e.Close()

		sess := session.New()

		if genPreset != "" {
			return generatePreset(ctx, e, sess, mode)
		}
		return generateFiles(ctx, e, sess, args, mode)
	},
}

func generatePreset(ctx context.Context, e *engine.Engine, sess *session.Session, mode sink.Mode) error {
	p, err := presets.Get(genPreset)
	if err != nil {
		return err
	}

	sch, fallbacks, err := p.Build(presets.Options{
		Fields:     genFields,
		Table:      genTable,
		References: genRefs,
		Available: func(table string) bool {
			exists, err := e.Reader().TableExists(ctx, table)
			return err == nil && exists
		},
	})
	if err != nil {
		return err
	}
	for _, field := range fallbacks {
		color.Yellow("⚠️  %s: referenced table not found, generating values instead", field)
	}

	res, err := e.Generate(ctx, sess, engine.Request{Schema: sch, Rows: genRows, Mode: mode, Seed: genSeed})
	if err != nil {
		return err
	}
	report(res)
	return nil
}

func generateFiles(ctx context.Context, e *engine.Engine, sess *session.Session, files []string, mode sink.Mode) error {
	if genTable != "" && len(files) > 1 {
		return fmt.Errorf("--table can only be used with a single schema file")
	}

	reqs := make([]engine.Request, 0, len(files))
	for _, file := range files {
		sch, err := schema.LoadFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if genTable != "" {
			sch.Table = genTable
		}
		reqs = append(reqs, engine.Request{Schema: sch, Rows: genRows, Mode: mode, Seed: genSeed})
	}

	results, err := e.GenerateAll(ctx, sess, reqs)
	for _, res := range results {
		report(res)
	}
	return err
}

func report(res *engine.Result) {
	if quiet {
		return
	}
	fmt.Println()
	printTable(res.Table, genPreview)
	fmt.Println()
	fmt.Printf("✅ Generated %s: %d rows → %s (%s)\n",
		res.Table.Name, len(res.Table.Rows), strings.Join(res.Sinks, ", "), res.Duration.Round(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genPreset, "preset", "p", "", "Generate from a preset (customers, products, companies, transactions)")
	generateCmd.Flags().StringSliceVar(&genFields, "fields", nil, "Preset fields to include (default: the preset's default fields)")
	generateCmd.Flags().StringToStringVar(&genRefs, "ref", nil, "Map a preset's referenced table to another table (customers=customers_eu)")
	generateCmd.Flags().StringVarP(&genTable, "table", "t", "", "Override the target table name")
	generateCmd.Flags().IntVarP(&genRows, "rows", "n", 100, "Number of rows to generate")
	generateCmd.Flags().StringVarP(&genMode, "mode", "m", "replace", "Write mode (replace, append)")
	generateCmd.Flags().StringSliceVarP(&genSinks, "sink", "s", nil, "Sinks to write to (store, database, file); default from config")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "Random seed for reproducible output")
	generateCmd.Flags().IntVar(&genPreview, "preview", 5, "Rows to print after generating")
}
