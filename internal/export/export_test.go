package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Rana718/datagen/internal/types"
)

func sample() *types.Table {
	return &types.Table{
		Name: "customers",
		Columns: []types.Column{
			{Name: "id", Type: types.TypeString},
			{Name: "notes", Type: types.TypeString},
			{Name: "points", Type: types.TypeNumber},
			{Name: "active", Type: types.TypeBoolean},
			{Name: "joined", Type: types.TypeDate},
		},
		Rows: []types.Row{
			{"id": "C1", "notes": "line one\nline two", "points": int64(10), "active": true, "joined": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
			{"id": "C2", "notes": "plain", "points": 2.5, "active": false, "joined": time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestExportCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := Export(sample(), FormatCSV, dir)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "customers.csv" {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), data)
	}
	if lines[0] != "id,notes,points,active,joined" {
		t.Errorf("header = %q", lines[0])
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if records[1][1] != "line one line two" {
		t.Errorf("newline not replaced: %q", records[1][1])
	}
	if records[1][4] != "2024-01-02T03:04:05Z" || records[2][2] != "2.5" {
		t.Errorf("unexpected values: %v", records)
	}
}

func TestExportJSONKeepsColumnOrder(t *testing.T) {
	path, err := Export(sample(), FormatJSON, t.TempDir())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, _ := os.ReadFile(path)
	text := string(data)

	order := []string{`"id"`, `"notes"`, `"points"`, `"active"`, `"joined"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		if idx < last {
			t.Fatalf("key %s out of order in %s", key, text)
		}
		last = idx
	}
}

func TestExportSQLite(t *testing.T) {
	path, err := Export(sample(), FormatSQLite, t.TempDir())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "customers"`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// Exporting again replaces the file instead of failing on CREATE TABLE.
	if _, err := Export(sample(), FormatSQLite, filepath.Dir(path)); err != nil {
		t.Errorf("second export failed: %v", err)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := Export(sample(), "xml", t.TempDir())
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Errorf("error = %v, want UnsupportedFormatError", err)
	}
}

type memReader map[string]*types.Table

func (m memReader) ReadAll(_ context.Context, name string) (*types.Table, error) {
	t, ok := m[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return t, nil
}

func (m memReader) ListTables(context.Context) ([]string, error) {
	return []string{"customers", "products"}, nil
}

func TestExportAll(t *testing.T) {
	products := &types.Table{
		Name:    "products",
		Columns: []types.Column{{Name: "sku", Type: types.TypeString}},
		Rows:    []types.Row{{"sku": "P1"}},
	}
	r := memReader{"customers": sample(), "products": products}

	paths, err := ExportAll(context.Background(), r, nil, FormatCSV, t.TempDir())
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "customers.csv" || filepath.Base(paths[1]) != "products.csv" {
		t.Errorf("paths = %v", paths)
	}

	// Unreadable tables are skipped.
	paths, err = ExportAll(context.Background(), r, []string{"missing", "products"}, FormatJSON, t.TempDir())
	if err != nil || len(paths) != 1 {
		t.Errorf("paths = %v, err = %v", paths, err)
	}
}
