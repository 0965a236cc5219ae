package cmd

import (
	"fmt"

	"github.com/Rana718/datagen/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initProvider string
	initSinks    []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a datagen.config.json in the current directory",
	Long: `Write a default configuration file and create the store and export
directories it points at.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		cfg.Database.Provider = initProvider
		if len(initSinks) > 0 {
			cfg.Sinks = initSinks
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(config.FileName); err != nil {
			return err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}

		color.Green("✅ Created %s", config.FileName)
		fmt.Printf("   Store:   %s\n", cfg.StorePath)
		fmt.Printf("   Exports: %s\n", cfg.ExportPath)
		fmt.Printf("   Sinks:   %v\n", cfg.Sinks)
		color.Yellow("💡 Set %s to enable the database sink", cfg.Database.URLEnv)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initProvider, "db", "postgresql", "Database provider (postgresql, mysql, sqlite, mongodb)")
	initCmd.Flags().StringSliceVar(&initSinks, "sinks", nil, "Default sinks (store, database, file)")
}
