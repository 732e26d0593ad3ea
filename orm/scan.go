package orm

import (
	"database/sql"
)

// Row is one flat result row keyed by column name. Rows are produced by
// scanning and never modified afterwards.
type Row map[string]any

func scanRow(rows *sql.Rows, cols []string) (Row, error) {
	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	row := make(Row, len(cols))
	for i, col := range cols {
		row[col] = normalize(values[i])
	}
	return row, nil
}

// normalize converts driver byte slices (MySQL text columns, decimals) to
// strings so that values compare and serialize as the scalars they are.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
