package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"civitas/internal/platform/metrics"
	txcontext "civitas/pkg/platform/tx"
)

// PostgresCounter increments a row in sequence_counters inside the caller's
// unit of work, so a rolled back submission returns its value. The row
// lock serializes writers of one (prefix, year) until commit. A retry after
// a collision relies on Seed having lifted the row past the stored numbers.
type PostgresCounter struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

type PostgresOption func(*PostgresCounter)

func WithPostgresMetrics(m *metrics.Metrics) PostgresOption {
	return func(c *PostgresCounter) {
		c.metrics = m
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresCounter {
	c := &PostgresCounter{db: db}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PostgresCounter) Next(ctx context.Context, prefix string, year int) (int64, error) {
	start := time.Now()
	const query = `
		INSERT INTO sequence_counters (prefix, year, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value
	`
	var value int64
	if err := txcontext.Pick(ctx, c.db).QueryRowContext(ctx, query, prefix, year).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment sequence counter: %w", err)
	}
	c.metrics.ObserveAllocation("postgres", start)
	return value, nil
}

// Seed raises the counter to last if it is lower. It always commits on its
// own so the raise outlives the attempt that triggered it.
func (c *PostgresCounter) Seed(ctx context.Context, prefix string, year int, last int64) error {
	const query = `
		INSERT INTO sequence_counters (prefix, year, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (prefix, year) DO UPDATE SET value = GREATEST(sequence_counters.value, EXCLUDED.value)
	`
	if _, err := c.db.ExecContext(ctx, query, prefix, year, last); err != nil {
		return fmt.Errorf("seed sequence counter: %w", err)
	}
	return nil
}
