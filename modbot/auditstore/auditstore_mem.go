package auditstore

import (
	"context"
	"sync"
	"time"
)

type MemAuditStore struct {
	lk      sync.Mutex
	actions []Action
}

func NewMemAuditStore() *MemAuditStore {
	return &MemAuditStore{}
}

func (s *MemAuditStore) Record(ctx context.Context, act *Action) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if act.CreatedAt.IsZero() {
		act.CreatedAt = time.Now().UTC()
	}
	act.ID = uint(len(s.actions) + 1)
	s.actions = append(s.actions, *act)
	return nil
}

// Copy of everything recorded so far. Intended for tests.
func (s *MemAuditStore) Actions() []Action {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}
