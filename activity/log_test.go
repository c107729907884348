package activity

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendAssignsSequence(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return fixed }

	first := l.Append("researching")
	second := l.Appendf("found %d ingredients", 25)

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, "found 25 ingredients", second.Message)
	assert.Equal(t, fixed, second.CreatedAt)
	assert.Equal(t, uint64(2), l.Last())
}

func TestLog_Read(t *testing.T) {
	l := New()
	for i := 1; i <= 5; i++ {
		l.Appendf("entry %d", i)
	}

	tests := []struct {
		name  string
		since uint64
		want  []uint64
	}{
		{"from start", 0, []uint64{1, 2, 3, 4, 5}},
		{"after cursor", 3, []uint64{4, 5}},
		{"at end", 5, []uint64{}},
		{"past end", 42, []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Read(tt.since)
			seqs := make([]uint64, 0, len(got))
			for _, e := range got {
				seqs = append(seqs, e.Seq)
			}
			assert.Equal(t, tt.want, seqs)
		})
	}
}

func TestLog_ReadIsIdempotent(t *testing.T) {
	l := New()
	l.Append("a")
	l.Append("b")

	first := l.Read(1)
	second := l.Read(1)
	assert.Equal(t, first, second)

	// mutating a returned slice never leaks back into the log
	first[0].Message = "tampered"
	assert.Equal(t, "b", l.Read(1)[0].Message)
}

func TestLog_IncreasingCursorNeverRedelivers(t *testing.T) {
	l := New()
	var cursor uint64
	seen := map[uint64]bool{}

	for round := 0; round < 4; round++ {
		l.Appendf("round %d a", round)
		l.Appendf("round %d b", round)

		for _, e := range l.Read(cursor) {
			require.False(t, seen[e.Seq], "entry %d delivered twice", e.Seq)
			require.Greater(t, e.Seq, cursor)
			seen[e.Seq] = true
			cursor = e.Seq
		}
	}
	assert.Len(t, seen, 8)
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Append(fmt.Sprintf("msg %d", i))
			_ = l.Read(0)
		}(i)
	}
	wg.Wait()

	entries := l.Read(0)
	require.Len(t, entries, 50)
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
}
