package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS meal_plans (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	total_cost  NUMERIC(10,2) NOT NULL,
	over_budget BOOLEAN NOT NULL,
	plan        JSONB NOT NULL
)`

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresArchive stores plans in a meal_plans table.
type PostgresArchive struct {
	db    execer
	close func()
}

// NewPostgresArchive connects with a pgx pool and creates the table when missing.
func NewPostgresArchive(ctx context.Context, connStr string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a := &PostgresArchive{db: pool, close: pool.Close}
	if err := a.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func newPostgresArchive(db execer) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create meal_plans: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Save(ctx context.Context, rec PlanRecord) error {
	body, err := rec.planJSON()
	if err != nil {
		return err
	}
	_, err = a.db.Exec(ctx,
		`INSERT INTO meal_plans (id, session_id, created_at, total_cost, over_budget, plan)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		rec.ID, rec.SessionID, rec.CreatedAt,
		rec.Plan.Summary.TotalCost, rec.Plan.OverBudget, string(body))
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Close() error {
	if a.close != nil {
		a.close()
	}
	return nil
}
