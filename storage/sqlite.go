package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nutribudget"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meal_plans (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	total_cost   REAL NOT NULL,
	over_budget  INTEGER NOT NULL,
	plan         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meal_plans_session ON meal_plans(session_id);
`

// SQLiteArchive stores plans in a local SQLite database.
type SQLiteArchive struct {
	db *sql.DB
}

func NewSQLiteArchive(ctx context.Context, dsn string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteArchive{db: db}, nil
}

func (a *SQLiteArchive) Save(ctx context.Context, rec PlanRecord) error {
	body, err := rec.planJSON()
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO meal_plans (id, session_id, created_at, total_cost, over_budget, plan) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.CreatedAt.Format(time.RFC3339Nano),
		rec.Plan.Summary.TotalCost, rec.Plan.OverBudget, string(body))
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// List returns the plans archived for a session, oldest first.
func (a *SQLiteArchive) List(ctx context.Context, sessionID string) ([]PlanRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, session_id, created_at, plan FROM meal_plans WHERE session_id = ? ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		var (
			rec       PlanRecord
			createdAt string
			body      string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &createdAt, &body); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		var plan nutribudget.MealPlan
		if err := json.Unmarshal([]byte(body), &plan); err != nil {
			return nil, fmt.Errorf("decode plan %s: %w", rec.ID, err)
		}
		rec.Plan = plan
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *SQLiteArchive) Close() error { return a.db.Close() }
