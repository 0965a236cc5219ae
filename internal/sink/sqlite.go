package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/datagen/internal/types"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: squirrel.Question,
	quote:       pq.QuoteIdentifier,
	columnTypes: map[types.SemanticType]string{
		types.TypeString:  "TEXT",
		types.TypeNumber:  "NUMERIC",
		types.TypeDate:    "TEXT",
		types.TypeBoolean: "INTEGER",
	},
	metaDDL: `CREATE TABLE IF NOT EXISTS _datagen_columns (
		table_name TEXT NOT NULL,
		position INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		semantic_type TEXT NOT NULL,
		PRIMARY KEY (table_name, position)
	)`,
	existsQuery: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	listQuery:   "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	encode: func(v any) any {
		// Dates are stored as RFC 3339 text so they sort and parse back
		// without relying on the driver's timestamp detection.
		if ts, ok := v.(time.Time); ok {
			return ts.UTC().Format(time.RFC3339Nano)
		}
		return v
	},
	// SQLite allows 32766 bound parameters per statement.
	batch: 500,
}

// SQLiteStore is the local embedded table store. Tables survive process
// restarts and are looked up by name.
type SQLiteStore struct {
	*sqlStore
	path string
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// One connection keeps writes serialized and makes :memory: usable.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{sqlStore: newSQLStore(db, sqliteDialect), path: path}
	if err := store.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Path() string { return s.path }
