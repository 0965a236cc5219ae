package sink

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/datagen/internal/export"
	"github.com/Rana718/datagen/internal/types"
)

// dialect holds what differs between the database/sql backed stores.
type dialect struct {
	name        string
	placeholder squirrel.PlaceholderFormat
	quote       func(string) string
	columnTypes map[types.SemanticType]string
	metaDDL     string
	existsQuery string
	listQuery   string
	encode      func(any) any
	// batch caps rows per INSERT to stay under the driver's bind limit.
	batch int
}

// sqlStore implements every capability on top of database/sql. SQLite and
// MySQL share it.
type sqlStore struct {
	db *sql.DB
	qb squirrel.StatementBuilderType
	d  dialect
}

func newSQLStore(db *sql.DB, d dialect) *sqlStore {
	return &sqlStore{
		db: db,
		qb: squirrel.StatementBuilder.PlaceholderFormat(d.placeholder),
		d:  d,
	}
}

func (s *sqlStore) Name() string { return s.d.name }

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &SinkUnavailableError{Sink: s.d.name, Err: err}
	}
	return nil
}

func (s *sqlStore) fail(op, table string, err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return &SinkUnavailableError{Sink: s.d.name, Err: err}
	}
	return &SinkError{Sink: s.d.name, Op: op, Table: table, Err: err}
}

func (s *sqlStore) ensureMeta(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.metaDDL); err != nil {
		return s.fail("create metadata table", metaTable, err)
	}
	return nil
}

func (s *sqlStore) TableExists(ctx context.Context, name string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.d.existsQuery, name).Scan(&count); err != nil {
		return false, s.fail("check table", name, err)
	}
	return count > 0, nil
}

func (s *sqlStore) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.d.listQuery)
	if err != nil {
		return nil, s.fail("list tables", "", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, s.fail("list tables", "", err)
		}
		if name != metaTable {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list tables", "", err)
	}
	return names, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// storedColumns returns the recorded column definitions of a table, or nil
// when the table has none.
func (s *sqlStore) storedColumns(ctx context.Context, q queryer, name string) ([]types.Column, error) {
	query, args, err := s.qb.Select("column_name", "semantic_type").From(metaTable).
		Where(squirrel.Eq{"table_name": name}).OrderBy("position").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, args...)
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

func (s *sqlStore) CreateOrReplace(ctx context.Context, t *types.Table) error {
	if err := s.ensureMeta(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin", t.Name, err)
	}
	defer tx.Rollback()

	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = fmt.Sprintf("%s %s", s.d.quote(col.Name), s.d.columnTypes[col.Type])
	}

	statements := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", s.d.quote(t.Name)),
		fmt.Sprintf("CREATE TABLE %s (%s)", s.d.quote(t.Name), strings.Join(defs, ", ")),
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return s.fail("create", t.Name, err)
		}
	}

	if err := s.writeColumns(ctx, tx, t); err != nil {
		return s.fail("record columns", t.Name, err)
	}
	if err := s.insertRows(ctx, tx, t.Name, t.Columns, t.Rows); err != nil {
		return s.fail("insert", t.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail("commit", t.Name, err)
	}
	return nil
}

func (s *sqlStore) writeColumns(ctx context.Context, q queryer, t *types.Table) error {
	query, args, err := s.qb.Delete(metaTable).Where(squirrel.Eq{"table_name": t.Name}).ToSql()
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	insert := s.qb.Insert(metaTable).Columns("table_name", "position", "column_name", "semantic_type")
	for i, col := range t.Columns {
		insert = insert.Values(t.Name, i, col.Name, string(col.Type))
	}
	query, args, err = insert.ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlStore) insertRows(ctx context.Context, q queryer, name string, columns []types.Column, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = s.d.quote(col.Name)
	}

	batch := s.d.batch
	if batch <= 0 {
		batch = len(rows)
	}

	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}

		insert := s.qb.Insert(s.d.quote(name)).Columns(quoted...)
		for _, row := range rows[start:end] {
			values := make([]interface{}, len(columns))
			for i, col := range columns {
				values[i] = s.d.encode(row[col.Name])
			}
			insert = insert.Values(values...)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) Append(ctx context.Context, name string, t *types.Table) error {
	if err := s.ensureMeta(ctx); err != nil {
		return err
	}

	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return &TableNotFoundError{Sink: s.d.name, Table: name}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin", name, err)
	}
	defer tx.Rollback()

	stored, err := s.storedColumns(ctx, tx, name)
	if err != nil {
		return s.fail("read columns", name, err)
	}
	if len(stored) == 0 {
		return &TypeMismatchError{Table: name, Reason: "table was not created by datagen and has no recorded column types"}
	}
	if err := checkAppend(name, stored, t.Columns); err != nil {
		return err
	}

	if err := s.insertRows(ctx, tx, name, stored, t.Rows); err != nil {
		return s.fail("append", name, err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail("commit", name, err)
	}
	return nil
}

func (s *sqlStore) CheckAppend(ctx context.Context, name string, t *types.Table) error {
	exists, err := s.TableExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	if err := s.ensureMeta(ctx); err != nil {
		return err
	}

	stored, err := s.storedColumns(ctx, s.db, name)
	if err != nil {
		return s.fail("read columns", name, err)
	}
	if len(stored) == 0 {
		return &TypeMismatchError{Table: name, Reason: "table was not created by datagen and has no recorded column types"}
	}
	return checkAppend(name, stored, t.Columns)
}

func (s *sqlStore) DropTable(ctx context.Context, name string) error {
	if err := s.ensureMeta(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.d.quote(name))); err != nil {
		return s.fail("drop", name, err)
	}
	query, args, err := s.qb.Delete(metaTable).Where(squirrel.Eq{"table_name": name}).ToSql()
	if err != nil {
		return s.fail("drop", name, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return s.fail("drop", name, err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail("commit", name, err)
	}
	return nil
}

// ReadAll returns every row of a table. Tables without recorded column
// definitions are read with every column as a string.
func (s *sqlStore) ReadAll(ctx context.Context, name string) (*types.Table, error) {
	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &TableNotFoundError{Sink: s.d.name, Table: name}
	}

	var columns []types.Column
	if metaExists, err := s.TableExists(ctx, metaTable); err != nil {
		return nil, err
	} else if metaExists {
		if columns, err = s.storedColumns(ctx, s.db, name); err != nil {
			return nil, s.fail("read columns", name, err)
		}
	}

	selectCols := []string{"*"}
	if len(columns) > 0 {
		selectCols = make([]string, len(columns))
		for i, col := range columns {
			selectCols[i] = s.d.quote(col.Name)
		}
	}

	query, args, err := s.qb.Select(selectCols...).From(s.d.quote(name)).ToSql()
	if err != nil {
		return nil, s.fail("read", name, err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail("read", name, err)
	}
	defer rows.Close()

	if len(columns) == 0 {
		names, err := rows.Columns()
		if err != nil {
			return nil, s.fail("read", name, err)
		}
		for _, n := range names {
			columns = append(columns, types.Column{Name: n, Type: types.TypeString})
		}
	}

	table := &types.Table{Name: name, Columns: columns}
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.fail("read", name, err)
		}
		row, err := decodeRow(columns, raw)
		if err != nil {
			return nil, s.fail("read", name, err)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("read", name, err)
	}
	return table, nil
}

func (s *sqlStore) Export(_ context.Context, t *types.Table, format, dir string) (string, error) {
	path, err := export.Export(t, format, dir)
	if err != nil {
		return "", &SinkError{Sink: s.d.name, Op: "export", Table: t.Name, Err: err}
	}
	return path, nil
}
