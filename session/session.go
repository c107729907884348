// Package session owns per-session state and exposes the two inbound operations,
// submitting a chat message and polling the activity log.
package session

import (
	"sync"
	"time"

	"nutribudget"
	"nutribudget/activity"
	"nutribudget/intake"
)

// Session is one user's conversation. Turns are serialized by the turn lock; state
// reads from pollers only take the state lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn sync.Mutex

	mu    sync.RWMutex
	state intake.State
	plan  *nutribudget.MealPlan
	log   *activity.Log
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		log:       activity.New(),
	}
}

func (s *Session) Stage() intake.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Stage
}

func (s *Session) Profile() nutribudget.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Profile
}

// Plan returns the last completed plan, or nil.
func (s *Session) Plan() *nutribudget.MealPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.plan == nil {
		return nil
	}
	p := *s.plan
	return &p
}

func (s *Session) Activity() *activity.Log {
	return s.log
}

func (s *Session) snapshot() intake.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) store(st intake.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Stage != intake.Complete {
		s.plan = nil
	}
	s.state = st
}

func (s *Session) apply(ev intake.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Apply(ev)
}

func (s *Session) complete(plan nutribudget.MealPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.Apply(intake.EventPlanReady); err != nil {
		return err
	}
	s.plan = &plan
	return nil
}

func (s *Session) fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Profile.Confirmed = false
	return s.state.Apply(intake.EventPlanFailed)
}
