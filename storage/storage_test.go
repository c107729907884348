package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribudget"
)

func TestFileCatalogState(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		filename    string
		data        []byte
		write       bool
		expectError bool
	}{
		{
			name:     "yaml catalog",
			filename: "catalog.yaml",
			data:     []byte("- name: Rice\n  price: 2.50\n  unit: per lb\n"),
			write:    true,
		},
		{
			name:     "json catalog",
			filename: "catalog.json",
			data:     []byte(`{"ingredients": [{"name": "Eggs", "price": "$2.99", "unit": "per dozen"}]}`),
			write:    true,
		},
		{
			name:        "missing file",
			filename:    "missing.yaml",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			if tt.write {
				require.NoError(t, os.WriteFile(filePath, tt.data, 0644))
			}

			loaded, err := NewFileCatalogState(filePath).Load(context.Background())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.data, loaded)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes entries", func(t *testing.T) {
		state := NewTestCatalogState([]byte(`
ingredients:
  - name: Brown Rice
    price: 4.99
    unit: per 2 lb
    store: Aldi
  - name: Black Beans
    unit_cost: 1.25
    unit: per can
`))
		items, err := LoadCatalog(ctx, state)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Brown Rice", items[0].Name)
		assert.Equal(t, "Aldi", items[0].Store)
		assert.Equal(t, "Black Beans", items[1].Name)
		assert.InDelta(t, 1.25, items[1].UnitCost, 1e-9)
	})

	t.Run("load error", func(t *testing.T) {
		_, err := LoadCatalog(ctx, NewTestCatalogStateWithError())
		assert.ErrorContains(t, err, "failed to load catalog")
	})

	t.Run("empty catalog", func(t *testing.T) {
		_, err := LoadCatalog(ctx, NewTestCatalogState(nil))
		assert.ErrorContains(t, err, "failed to decode catalog")
	})
}

type fakeS3 struct {
	objects map[string][]byte
	meta    map[string]map[string]string
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(b)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = b
	f.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func TestS3CatalogState(t *testing.T) {
	fake := newFakeS3()
	fake.objects["prices/catalog.yaml"] = []byte("- name: Oats\n  price: 2.99\n  unit: per container\n")

	items, err := LoadCatalog(context.Background(), NewS3CatalogState(fake, "prices", "catalog.yaml"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Oats", items[0].Name)

	_, err = NewS3CatalogState(fake, "prices", "other.yaml").Load(context.Background())
	assert.ErrorContains(t, err, "failed to get catalog object from S3")
}

func testRecord(id string) PlanRecord {
	return PlanRecord{
		ID:        id,
		SessionID: "session-1",
		CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Plan: nutribudget.MealPlan{
			Summary:    nutribudget.WeeklySummary{TotalCost: 71.4, HouseholdSize: 2, Budget: 75},
			Source:     nutribudget.PlanFallback,
			OverBudget: false,
		},
	}
}

func TestS3Archive(t *testing.T) {
	fake := newFakeS3()
	archive := NewS3Archive(fake, "archive", "plans/")
	rec := testRecord("rec-1")

	require.NoError(t, archive.Save(context.Background(), rec))
	assert.Equal(t, "plans/session-1/rec-1.json", archive.Key(rec))

	stored, ok := fake.objects["archive/plans/session-1/rec-1.json"]
	require.True(t, ok)
	var plan nutribudget.MealPlan
	require.NoError(t, json.Unmarshal(stored, &plan))
	assert.InDelta(t, 71.4, plan.Summary.TotalCost, 1e-9)
	assert.Equal(t, "session-1", fake.meta["archive/plans/session-1/rec-1.json"]["session-id"])

	fake.err = errors.New("access denied")
	assert.ErrorContains(t, archive.Save(context.Background(), rec), "access denied")
}

type recordedExec struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []recordedExec
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, recordedExec{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresArchive(t *testing.T) {
	db := &fakeExecer{}
	archive := newPostgresArchive(db)
	ctx := context.Background()

	require.NoError(t, archive.EnsureSchema(ctx))
	require.NoError(t, archive.Save(ctx, testRecord("6f1c1a8e-8f3a-4b8e-9d55-0d7c2b6f7e10")))
	require.Len(t, db.calls, 2)

	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS meal_plans")
	insert := db.calls[1]
	assert.Contains(t, insert.sql, "$6::jsonb")
	require.Len(t, insert.args, 6)
	assert.Equal(t, "6f1c1a8e-8f3a-4b8e-9d55-0d7c2b6f7e10", insert.args[0])
	assert.Equal(t, "session-1", insert.args[1])
	assert.Equal(t, 71.4, insert.args[3])
	assert.Equal(t, false, insert.args[4])
	assert.Contains(t, insert.args[5], `"source":"fallback"`)

	db.err = errors.New("connection refused")
	assert.ErrorContains(t, archive.Save(ctx, testRecord("x")), "insert plan")
	assert.NoError(t, archive.Close())
}

func TestSQLiteArchive(t *testing.T) {
	ctx := context.Background()
	archive, err := NewSQLiteArchive(ctx, filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	defer archive.Close()

	first := testRecord("rec-1")
	second := testRecord("rec-2")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	second.Plan.OverBudget = true
	other := testRecord("rec-3")
	other.SessionID = "session-2"

	for _, rec := range []PlanRecord{second, first, other} {
		require.NoError(t, archive.Save(ctx, rec))
	}

	got, err := archive.List(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rec-1", got[0].ID)
	assert.Equal(t, "rec-2", got[1].ID)
	assert.True(t, got[1].Plan.OverBudget)
	assert.True(t, got[0].CreatedAt.Equal(first.CreatedAt))
	assert.Equal(t, nutribudget.PlanFallback, got[0].Plan.Source)

	assert.Error(t, archive.Save(ctx, first), "duplicate id")
}

func TestArchiveSink(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewFileArchive(dir)
	require.NoError(t, err)

	sink := NewArchiveSink(archive)
	sink.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	plan := testRecord("").Plan
	require.NoError(t, sink.HandlePlan(context.Background(), "session-9", plan))

	files, err := os.ReadDir(filepath.Join(dir, "session-9"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	b, err := os.ReadFile(filepath.Join(dir, "session-9", files[0].Name()))
	require.NoError(t, err)
	var rec PlanRecord
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "session-9", rec.SessionID)
	assert.Equal(t, strings.TrimSuffix(files[0].Name(), ".json"), rec.ID)
	assert.Len(t, rec.ID, 36)
	assert.InDelta(t, 71.4, rec.Plan.Summary.TotalCost, 1e-9)
}

type failingArchive struct{}

func (failingArchive) Save(context.Context, PlanRecord) error { return errors.New("disk full") }
func (failingArchive) Close() error                           { return nil }

func TestArchiveSink_Error(t *testing.T) {
	err := NewArchiveSink(failingArchive{}).HandlePlan(context.Background(), "s", nutribudget.MealPlan{})
	assert.ErrorContains(t, err, "failed to archive plan: disk full")
}
