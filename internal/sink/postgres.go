package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/datagen/internal/export"
	"github.com/Rana718/datagen/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

var postgresTypes = map[types.SemanticType]string{
	types.TypeString:  "TEXT",
	types.TypeNumber:  "DOUBLE PRECISION",
	types.TypeDate:    "TIMESTAMPTZ",
	types.TypeBoolean: "BOOLEAN",
}

// PostgresStore writes tables to PostgreSQL. Rows go in with a single COPY
// per call inside the same transaction as the DDL.
type PostgresStore struct {
	pool *pgxpool.Pool
	qb   squirrel.StatementBuilderType
}

func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection URL: %w", err)
	}

	config.MaxConns = 2
	config.MinConns = 0
	config.MaxConnLifetime = 15 * time.Minute
	config.MaxConnIdleTime = 3 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &SinkUnavailableError{Sink: "postgresql", Err: err}
	}

	return &PostgresStore{
		pool: pool,
		qb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func (p *PostgresStore) Name() string { return "postgresql" }

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *PostgresStore) fail(op, table string, err error) error {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return &SinkUnavailableError{Sink: p.Name(), Err: err}
	}
	return &SinkError{Sink: p.Name(), Op: op, Table: table, Err: err}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return &SinkUnavailableError{Sink: p.Name(), Err: err}
	}
	return nil
}

func (p *PostgresStore) ensureMeta(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS _datagen_columns (
		table_name TEXT NOT NULL,
		position INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		semantic_type TEXT NOT NULL,
		PRIMARY KEY (table_name, position)
	)`)
	if err != nil {
		return p.fail("create metadata table", metaTable, err)
	}
	return nil
}

func (p *PostgresStore) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = $1 AND table_schema = current_schema()
		)
	`, name).Scan(&exists)
	if err != nil {
		return false, p.fail("check table", name, err)
	}
	return exists, nil
}

func (p *PostgresStore) ListTables(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, p.fail("list tables", "", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, p.fail("list tables", "", err)
		}
		if name != metaTable {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail("list tables", "", err)
	}
	return names, nil
}

func (p *PostgresStore) storedColumns(ctx context.Context, q pgxQuerier, name string) ([]types.Column, error) {
	query, args, err := p.qb.Select("column_name", "semantic_type").From(metaTable).
		Where(squirrel.Eq{"table_name": name}).OrderBy("position").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col, typ string
		if err := rows.Scan(&col, &typ); err != nil {
			return nil, err
		}
		st, err := types.ParseSemanticType(typ)
		if err != nil {
			return nil, err
		}
		columns = append(columns, types.Column{Name: col, Type: st})
	}
	return columns, rows.Err()
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (p *PostgresStore) CreateOrReplace(ctx context.Context, t *types.Table) error {
	if err := p.ensureMeta(ctx); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return p.fail("begin", t.Name, err)
	}
	defer tx.Rollback(ctx)

	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(col.Name), postgresTypes[col.Type])
	}

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(t.Name)); err != nil {
		return p.fail("drop", t.Name, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", pq.QuoteIdentifier(t.Name), strings.Join(defs, ", "))); err != nil {
		return p.fail("create", t.Name, err)
	}

	query, args, err := p.qb.Delete(metaTable).Where(squirrel.Eq{"table_name": t.Name}).ToSql()
	if err != nil {
		return p.fail("record columns", t.Name, err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return p.fail("record columns", t.Name, err)
	}

	insert := p.qb.Insert(metaTable).Columns("table_name", "position", "column_name", "semantic_type")
	for i, col := range t.Columns {
		insert = insert.Values(t.Name, i, col.Name, string(col.Type))
	}
	if query, args, err = insert.ToSql(); err != nil {
		return p.fail("record columns", t.Name, err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return p.fail("record columns", t.Name, err)
	}

	if err := p.copyRows(ctx, tx, t.Name, t.Columns, t.Rows); err != nil {
		return p.fail("insert", t.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return p.fail("commit", t.Name, err)
	}
	return nil
}

func (p *PostgresStore) copyRows(ctx context.Context, tx pgx.Tx, name string, columns []types.Column, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}

	data := make([][]any, len(rows))
	for r, row := range rows {
		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = postgresValue(row[col.Name])
		}
		data[r] = values
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{name}, names, pgx.CopyFromRows(data))
	return err
}

// postgresValue widens integers so COPY can encode them into DOUBLE PRECISION.
func postgresValue(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

func (p *PostgresStore) Append(ctx context.Context, name string, t *types.Table) error {
	if err := p.ensureMeta(ctx); err != nil {
		return err
	}

	exists, err := p.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return &TableNotFoundError{Sink: p.Name(), Table: name}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return p.fail("begin", name, err)
	}
	defer tx.Rollback(ctx)

	stored, err := p.storedColumns(ctx, tx, name)
	if err != nil {
		return p.fail("read columns", name, err)
	}
	if len(stored) == 0 {
		return &TypeMismatchError{Table: name, Reason: "table was not created by datagen and has no recorded column types"}
	}
	if err := checkAppend(name, stored, t.Columns); err != nil {
		return err
	}

	if err := p.copyRows(ctx, tx, name, stored, t.Rows); err != nil {
		return p.fail("append", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return p.fail("commit", name, err)
	}
	return nil
}

func (p *PostgresStore) CheckAppend(ctx context.Context, name string, t *types.Table) error {
	exists, err := p.TableExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	if err := p.ensureMeta(ctx); err != nil {
		return err
	}

	stored, err := p.storedColumns(ctx, p.pool, name)
	if err != nil {
		return p.fail("read columns", name, err)
	}
	if len(stored) == 0 {
		return &TypeMismatchError{Table: name, Reason: "table was not created by datagen and has no recorded column types"}
	}
	return checkAppend(name, stored, t.Columns)
}

func (p *PostgresStore) DropTable(ctx context.Context, name string) error {
	if err := p.ensureMeta(ctx); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return p.fail("begin", name, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(name)); err != nil {
		return p.fail("drop", name, err)
	}
	query, args, err := p.qb.Delete(metaTable).Where(squirrel.Eq{"table_name": name}).ToSql()
	if err != nil {
		return p.fail("drop", name, err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return p.fail("drop", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return p.fail("commit", name, err)
	}
	return nil
}

func (p *PostgresStore) ReadAll(ctx context.Context, name string) (*types.Table, error) {
	exists, err := p.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &TableNotFoundError{Sink: p.Name(), Table: name}
	}

	var columns []types.Column
	metaExists, err := p.TableExists(ctx, metaTable)
	if err != nil {
		return nil, err
	}
	if metaExists {
		if columns, err = p.storedColumns(ctx, p.pool, name); err != nil {
			return nil, p.fail("read columns", name, err)
		}
	}

	selectCols := []string{"*"}
	if len(columns) > 0 {
		selectCols = make([]string, len(columns))
		for i, col := range columns {
			selectCols[i] = pq.QuoteIdentifier(col.Name)
		}
	}

	query, args, err := p.qb.Select(selectCols...).From(pq.QuoteIdentifier(name)).ToSql()
	if err != nil {
		return nil, p.fail("read", name, err)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, p.fail("read", name, err)
	}
	defer rows.Close()

	if len(columns) == 0 {
		for _, fd := range rows.FieldDescriptions() {
			columns = append(columns, types.Column{Name: fd.Name, Type: types.TypeString})
		}
	}

	table := &types.Table{Name: name, Columns: columns}
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, p.fail("read", name, err)
		}
		row, err := decodeRow(columns, raw)
		if err != nil {
			return nil, p.fail("read", name, err)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail("read", name, err)
	}
	return table, nil
}

func (p *PostgresStore) Export(_ context.Context, t *types.Table, format, dir string) (string, error) {
	path, err := export.Export(t, format, dir)
	if err != nil {
		return "", &SinkError{Sink: p.Name(), Op: "export", Table: t.Name, Err: err}
	}
	return path, nil
}
