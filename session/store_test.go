package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribudget"
	"nutribudget/intake"
)

func TestStore_GetOrCreate(t *testing.T) {
	s := NewStore(10, time.Hour)

	a, created := s.GetOrCreate("a")
	assert.True(t, created)
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, intake.AwaitingBudget, a.Stage())
	assert.Nil(t, a.Plan())

	again, created := s.GetOrCreate("a")
	assert.False(t, created)
	assert.Same(t, a, again)
	assert.Equal(t, 1, s.Len())

	_, err := s.Get("b")
	assert.ErrorIs(t, err, nutribudget.ErrSessionNotFound)
}

func TestStore_IdleEviction(t *testing.T) {
	s := NewStore(10, 50*time.Millisecond)
	s.GetOrCreate("idle")

	time.Sleep(150 * time.Millisecond)

	_, err := s.Get("idle")
	assert.ErrorIs(t, err, nutribudget.ErrSessionNotFound)

	fresh, created := s.GetOrCreate("idle")
	assert.True(t, created)
	assert.NotNil(t, fresh)
}

func TestStore_CapacityEviction(t *testing.T) {
	s := NewStore(2, time.Hour)
	s.GetOrCreate("a")
	s.GetOrCreate("b")
	s.GetOrCreate("c")

	_, err := s.Get("a")
	assert.ErrorIs(t, err, nutribudget.ErrSessionNotFound)
	_, err = s.Get("c")
	require.NoError(t, err)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(2, time.Hour)
	s.GetOrCreate("a")
	s.Delete("a")
	assert.Equal(t, 0, s.Len())
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
