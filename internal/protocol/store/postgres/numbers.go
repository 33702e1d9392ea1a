package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// NumberIndex reads the largest stored suffix straight from the unique
// number columns. Prefixes are upper-case letters, so the LIKE pattern
// needs no escaping.
type NumberIndex struct {
	db *sql.DB
}

func (s *NumberIndex) LastIssued(ctx context.Context, prefix string, year int) (int64, error) {
	query := `
		SELECT COALESCE(MAX(CAST(split_part(n, '-', 3) AS BIGINT)), 0)
		FROM (
			SELECT tracking_number AS n FROM protocols WHERE tracking_number LIKE $1
			UNION ALL
			SELECT number AS n FROM module_records WHERE number LIKE $1
		) issued
	`
	var last int64
	pattern := fmt.Sprintf("%s-%04d-%%", prefix, year)
	if err := exec(ctx, s.db).QueryRowContext(ctx, query, pattern).Scan(&last); err != nil {
		return 0, fmt.Errorf("query last issued number: %w", err)
	}
	return last, nil
}
