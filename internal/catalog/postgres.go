package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresCatalog struct {
	pool *pgxpool.Pool
}

func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) ModuleCount(ctx context.Context, courseID string) (int, error) {
	var count int
	row := c.pool.QueryRow(ctx, `
    SELECT module_count
    FROM courses
    WHERE id::text = $1
  `, courseID)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCourseNotFound
		}
		return 0, fmt.Errorf("course module count: %w", err)
	}
	return count, nil
}
