// Package memstore keeps snapshots and transcripts in process memory.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgallion1/labgest/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	snapshots map[string][]*store.Snapshot
	messages  map[string][]store.Message
}

func New() *Store {
	return &Store{
		snapshots: make(map[string][]*store.Snapshot),
		messages:  make(map[string][]store.Message),
	}
}

func (s *Store) AppendSnapshot(_ context.Context, snap *store.Snapshot) error {
	if err := store.ValidatePatientID(snap.PatientID); err != nil {
		return err
	}
	cp := *snap

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.PatientID] = append(s.snapshots[snap.PatientID], &cp)
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, patientID string) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.snapshots[patientID]
	if len(list) == 0 {
		return nil, fmt.Errorf("patient %q: %w", patientID, store.ErrNotFound)
	}
	cp := *list[len(list)-1]
	return &cp, nil
}

func (s *Store) ListSnapshots(_ context.Context, patientID string, limit int) ([]*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.snapshots[patientID]
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*store.Snapshot, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		cp := *list[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) AppendMessages(_ context.Context, patientID string, msgs ...store.Message) error {
	if err := store.ValidatePatientID(patientID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[patientID] = append(s.messages[patientID], msgs...)
	return nil
}

func (s *Store) Messages(_ context.Context, patientID string, limit int) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.messages[patientID]
	if limit > 0 && limit < len(list) {
		list = list[len(list)-limit:]
	}
	return append([]store.Message(nil), list...), nil
}

func (s *Store) DeletePatient(_ context.Context, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, patientID)
	delete(s.messages, patientID)
	return nil
}

func (s *Store) Close() error { return nil }
