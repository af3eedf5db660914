package countstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Counter store backed by a small JSON document on local disk (eg, "data.json").
//
// Every write rewrites the whole document to a temporary file in the same directory, then renames it over the record, so readers never observe a partial write.
type FileCountStore struct {
	Path   string
	Logger *slog.Logger

	lk sync.Mutex
}

type fileRecord struct {
	AcceptanceNumber *int `json:"acceptance_number"`
}

func NewFileCountStore(path string, logger *slog.Logger) *FileCountStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCountStore{
		Path:   path,
		Logger: logger.With("store", "file", "path", path),
	}
}

func (s *FileCountStore) Load(ctx context.Context) (State, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.load()
}

func (s *FileCountStore) Save(ctx context.Context, state State) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.save(state)
}

func (s *FileCountStore) Increment(ctx context.Context) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	state, err := s.load()
	if err != nil {
		return 0, err
	}
	state.AcceptanceNumber += 1
	if err := s.save(state); err != nil {
		return 0, err
	}
	return state.AcceptanceNumber, nil
}

// caller must hold the lock. a missing or malformed record is replaced by the default; any other
// read failure is returned, leaving the file as it is.
func (s *FileCountStore) load() (State, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Logger.Info("counter file not found, creating with default values")
		return s.reset()
	} else if err != nil {
		return State{}, fmt.Errorf("reading counter file: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.Logger.Error("failed to decode counter file, resetting", "err", err)
		return s.reset()
	}
	if rec.AcceptanceNumber == nil {
		s.Logger.Warn("counter file missing field, defaulting to zero", "field", AcceptanceNumber)
		return s.reset()
	}
	if *rec.AcceptanceNumber < 0 {
		s.Logger.Error("negative counter value in file, resetting", "value", *rec.AcceptanceNumber)
		return s.reset()
	}
	return State{AcceptanceNumber: *rec.AcceptanceNumber}, nil
}

func (s *FileCountStore) reset() (State, error) {
	state := State{}
	if err := s.save(state); err != nil {
		return state, err
	}
	return state, nil
}

func (s *FileCountStore) save(state State) error {
	buf, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating counter directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary counter file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing counter file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing counter file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing counter file: %w", err)
	}
	return nil
}
