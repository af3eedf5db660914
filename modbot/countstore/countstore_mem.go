package countstore

import (
	"context"
	"sync"
)

type MemCountStore struct {
	lk    sync.Mutex
	state State
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{}
}

func (s *MemCountStore) Load(ctx context.Context) (State, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.state, nil
}

func (s *MemCountStore) Save(ctx context.Context, state State) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.state = state
	return nil
}

func (s *MemCountStore) Increment(ctx context.Context) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.state.AcceptanceNumber += 1
	return s.state.AcceptanceNumber, nil
}
