package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNoStatements is returned when a query script holds only whitespace and
// comments.
var ErrNoStatements = errors.New("no SQL statements found")

// QueryResult is the outcome of one statement. Columns and Rows are set for
// statements that return rows; RowsAffected for the rest.
type QueryResult struct {
	Statement    string
	Columns      []string
	Rows         [][]any
	RowsAffected int64
}

// Querier runs one raw SQL statement against a sink's database.
type Querier interface {
	Query(ctx context.Context, statement string) (*QueryResult, error)
}

// RunScript splits content into statements and runs them in order, stopping
// at the first failure. Results of the statements that ran are returned
// with the error.
func RunScript(ctx context.Context, q Querier, content string) ([]*QueryResult, error) {
	statements := SplitStatements(content)
	if len(statements) == 0 {
		return nil, ErrNoStatements
	}

	results := make([]*QueryResult, 0, len(statements))
	for i, stmt := range statements {
		res, err := q.Query(ctx, stmt)
		if err != nil {
			return results, fmt.Errorf("statement %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// SplitStatements breaks a script on semicolons that are not inside quotes
// or comments. Comments are dropped and empty statements skipped.
func SplitStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
			current.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			current.WriteRune('\n')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			current.WriteRune(' ')
		case r == ';':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return statements
}

// returnsRows guesses from the leading keyword whether a statement yields a
// result set.
func returnsRows(stmt string) bool {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	for _, prefix := range []string{"SELECT", "SHOW", "DESCRIBE", "EXPLAIN", "WITH", "PRAGMA", "VALUES", "TABLE"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return strings.Contains(upper, " RETURNING ")
}

func (s *sqlStore) Query(ctx context.Context, statement string) (*QueryResult, error) {
	result := &QueryResult{Statement: statement}

	if !returnsRows(statement) {
		res, err := s.db.ExecContext(ctx, statement)
		if err != nil {
			return nil, s.fail("query", "", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			result.RowsAffected = n
		}
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, s.fail("query", "", err)
	}
	defer rows.Close()

	if result.Columns, err = rows.Columns(); err != nil {
		return nil, s.fail("query", "", err)
	}
	for rows.Next() {
		if result.Rows, err = scanInto(rows, result.Columns, result.Rows); err != nil {
			return nil, s.fail("query", "", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("query", "", err)
	}
	return result, nil
}

func scanInto(rows *sql.Rows, columns []string, out [][]any) ([][]any, error) {
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return out, err
	}
	for i, v := range raw {
		if b, ok := v.([]byte); ok {
			raw[i] = string(b)
		}
	}
	return append(out, raw), nil
}

func (p *PostgresStore) Query(ctx context.Context, statement string) (*QueryResult, error) {
	result := &QueryResult{Statement: statement}

	if !returnsRows(statement) {
		tag, err := p.pool.Exec(ctx, statement)
		if err != nil {
			return nil, p.fail("query", "", err)
		}
		result.RowsAffected = tag.RowsAffected()
		return result, nil
	}

	rows, err := p.pool.Query(ctx, statement)
	if err != nil {
		return nil, p.fail("query", "", err)
	}
	defer rows.Close()

	for _, fd := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, p.fail("query", "", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail("query", "", err)
	}
	return result, nil
}
