package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"nutribudget"
)

// PlanRecord is one archived plan.
type PlanRecord struct {
	ID        string               `json:"id"`
	SessionID string               `json:"session_id"`
	CreatedAt time.Time            `json:"created_at"`
	Plan      nutribudget.MealPlan `json:"plan"`
}

func (r PlanRecord) planJSON() ([]byte, error) {
	b, err := json.Marshal(r.Plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	return b, nil
}

// Archive stores completed plans. It is write-only history, not session persistence.
type Archive interface {
	Save(ctx context.Context, rec PlanRecord) error
	Close() error
}

// ArchiveSink adapts an Archive to a plan sink.
type ArchiveSink struct {
	archive Archive
	now     func() time.Time
}

func NewArchiveSink(a Archive) *ArchiveSink {
	return &ArchiveSink{archive: a, now: time.Now}
}

func (s *ArchiveSink) HandlePlan(ctx context.Context, sessionID string, plan nutribudget.MealPlan) error {
	rec := PlanRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: s.now().UTC(),
		Plan:      plan,
	}
	if err := s.archive.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to archive plan: %w", err)
	}
	slog.Info("SESSION: Plan archived", "session_id", sessionID, "record_id", rec.ID)
	return nil
}

// FileArchive writes each record as <dir>/<session id>/<record id>.json.
type FileArchive struct {
	dir string
}

func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

func (f *FileArchive) Save(ctx context.Context, rec PlanRecord) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	dir := filepath.Join(f.dir, filepath.Base(rec.SessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, rec.ID+".json"), b, 0o644)
}

func (f *FileArchive) Close() error { return nil }
