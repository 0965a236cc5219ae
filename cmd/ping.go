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

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping [target]",
	Short: "Test the connection to a sink",
	Long: `Connect to a sink and check that it answers. The target is store or
database and defaults to database.`,
	Example: `  datagen ping
  datagen ping store`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := config.SinkDatabase
		if len(args) == 1 {
			target = args[0]
		}
		if target != config.SinkDatabase && target != config.SinkStore {
			return fmt.Errorf("unknown ping target: %s (use store or database)", target)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()

		if target == config.SinkDatabase {
			if dbURL, err := cfg.GetDatabaseURL(); err == nil {
				color.Cyan("🔗 Connecting to %s", maskDBURL(dbURL))
			}
		}

		start := time.Now()
		s, err := engine.OpenSink(ctx, cfg, target)
		if err != nil {
			return err
		}
		defer s.Close()

		if p, ok := s.(sink.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return err
			}
		}

		color.Green("✅ %s is reachable (%s)", s.Name(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 10*time.Second, "Give up after this long")
}
