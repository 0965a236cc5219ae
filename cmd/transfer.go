package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Rana718/datagen/internal/config"
	"github.com/Rana718/datagen/internal/engine"
	"github.com/Rana718/datagen/internal/sink"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	transferTo      string
	transferAs      string
	transferMode    string
	transferTimeout time.Duration
)

var transferCmd = &cobra.Command{
	Use:   "transfer <table>",
	Short: "Copy a stored table to another sink",
	Long: `Copy a table from the local store to the configured database or to a
CSV file, optionally under a new name.`,
	Example: `  datagen transfer customers
  datagen transfer customers --as crm_customers --mode append`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch transferTo {
		case config.SinkDatabase, config.SinkFile, config.SinkStore:
		default:
			return fmt.Errorf("unknown transfer target: %s", transferTo)
		}

		mode, err := sink.ParseMode(transferMode)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), transferTimeout)
		defer cancel()

		e, cfg, err := openEngine(ctx, []string{config.SinkStore})
		if err != nil {
			return err
		}
		defer e.Close()

		if !quiet && transferTo == config.SinkDatabase {
			if dbURL, err := cfg.GetDatabaseURL(); err == nil {
				color.Cyan("🔗 Connecting to %s", maskDBURL(dbURL))
			}
		}

		to, err := engine.OpenSink(ctx, cfg, transferTo)
		if err != nil {
			return err
		}
		defer to.Close()

		t, err := engine.Transfer(ctx, e.Reader(), to, args[0], transferAs, mode)
		if err != nil {
			return err
		}

		color.Green("✅ Transferred %s to %s (%d rows)", t.Name, to.Name(), len(t.Rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transferCmd)

	transferCmd.Flags().StringVar(&transferTo, "to", config.SinkDatabase, "Target sink (database, file, store)")
	transferCmd.Flags().StringVar(&transferAs, "as", "", "Name of the table at the target")
	transferCmd.Flags().StringVarP(&transferMode, "mode", "m", "replace", "Write mode (replace, append)")
	transferCmd.Flags().DurationVar(&transferTimeout, "timeout", 5*time.Minute, "Give up after this long")
}
