package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/datagen/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

var Formats = []string{FormatCSV, FormatJSON, FormatSQLite}

// UnsupportedFormatError is returned for any format outside Formats.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q (use %s)", e.Format, strings.Join(Formats, ", "))
}

// Reader is the slice of a sink that bulk export needs.
type Reader interface {
	ReadAll(ctx context.Context, name string) (*types.Table, error)
	ListTables(ctx context.Context) ([]string, error)
}

// Export writes one table into dir as <table>.<ext> and returns the path.
func Export(t *types.Table, format, dir string) (string, error) {
	if format == "" {
		format = FormatCSV
	}

	var write func(*types.Table, string) error
	ext := format
	switch format {
	case FormatCSV:
		write = writeCSV
	case FormatJSON:
		write = writeJSON
	case FormatSQLite:
		write = writeSQLite
		ext = "db"
	default:
		return "", &UnsupportedFormatError{Format: format}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s", t.Name, ext))
	if err := write(t, path); err != nil {
		return "", err
	}
	return path, nil
}

// ExportAll reads every listed table from r concurrently and exports each
// one. Tables that fail to read are logged and skipped.
func ExportAll(ctx context.Context, r Reader, tables []string, format, dir string) ([]string, error) {
	if len(tables) == 0 {
		names, err := r.ListTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get table names: %w", err)
		}
		tables = names
	}
	if len(tables) == 0 {
		log.Println("No tables found to export")
		return nil, nil
	}

	type tableResult struct {
		name  string
		table *types.Table
		err   error
	}

	results := make(chan tableResult, len(tables))
	var wg sync.WaitGroup

	for _, name := range tables {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			t, err := r.ReadAll(ctx, name)
			results <- tableResult{name, t, err}
		}(name)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	loaded := make(map[string]*types.Table, len(tables))
	for result := range results {
		if result.err != nil {
			log.Printf("Warning: Failed to read table %s: %v", result.name, result.err)
			continue
		}
		loaded[result.name] = result.table
	}

	// Write in the requested order so output is stable.
	var paths []string
	for _, name := range tables {
		t, ok := loaded[name]
		if !ok {
			continue
		}
		path, err := Export(t, format, dir)
		if err != nil {
			return paths, fmt.Errorf("failed to export %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func writeCSV(t *types.Table, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file for %s: %w", t.Name, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = newlines.Replace(types.FormatValue(row[col.Name]))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return file.Close()
}

// orderedRow marshals a row with its keys in column order.
type orderedRow struct {
	columns []types.Column
	row     types.Row
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, col := range o.columns {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(o.row[col.Name])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func writeJSON(t *types.Table, path string) error {
	rows := make([]orderedRow, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = orderedRow{columns: t.Columns, row: row}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

var sqliteTypes = map[types.SemanticType]string{
	types.TypeString:  "TEXT",
	types.TypeNumber:  "NUMERIC",
	types.TypeDate:    "TEXT",
	types.TypeBoolean: "INTEGER",
}

func writeSQLite(t *types.Table, path string) error {
	// Replace any previous export of the same table.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old export: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to create SQLite database: %w", err)
	}
	defer db.Close()

	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = fmt.Sprintf("%q %s", col.Name, sqliteTypes[col.Type])
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE %q (%s)", t.Name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).RunWith(tx)
	names := t.ColumnNames()
	for _, row := range t.Rows {
		values := make([]interface{}, len(names))
		for i, col := range t.Columns {
			values[i] = sqliteValue(row[col.Name])
		}
		if _, err := qb.Insert(fmt.Sprintf("%q", t.Name)).Columns(quoteAll(names)...).Values(values...).Exec(); err != nil {
			return fmt.Errorf("failed to insert row into %s: %w", t.Name, err)
		}
	}

	return tx.Commit()
}

func sqliteValue(v any) any {
	if ts, ok := v.(time.Time); ok {
		return types.FormatValue(ts)
	}
	return v
}

func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return quoted
}
