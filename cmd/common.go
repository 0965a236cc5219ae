package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rana718/datagen/internal/config"
	"github.com/Rana718/datagen/internal/engine"
	"github.com/Rana718/datagen/internal/types"
	"github.com/fatih/color"
)

func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine(ctx context.Context, targets []string) (*engine.Engine, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	e, err := engine.Open(ctx, cfg, targets, quiet)
	if err != nil {
		return nil, nil, err
	}
	return e, cfg, nil
}

// printTable renders the first limit rows of t as an aligned grid.
func printTable(t *types.Table, limit int) {
	names := t.ColumnNames()
	rows := t.Head(limit)

	widths := make([]int, len(names))
	cells := make([][]string, len(rows))
	for i, name := range names {
		widths[i] = len(name)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(names))
		for i, name := range names {
			v := truncate(types.FormatValue(row[name]), 32)
			cells[r][i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	header := color.New(color.FgCyan, color.Bold)
	for i, name := range names {
		header.Printf("%-*s  ", widths[i], name)
	}
	fmt.Println()
	for i := range names {
		fmt.Print(strings.Repeat("─", widths[i]), "  ")
	}
	fmt.Println()
	for _, row := range cells {
		for i, v := range row {
			fmt.Printf("%-*s  ", widths[i], v)
		}
		fmt.Println()
	}

	if len(t.Rows) > len(rows) {
		color.New(color.Faint).Printf("... %d more rows\n", len(t.Rows)-len(rows))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
