// Package store defines the ordered logs that hold a patient's report
// snapshots and chat transcript.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/labgest/internal/classify"
	"github.com/dgallion1/labgest/internal/compose"
)

var (
	// ErrNotFound is returned when a patient has no snapshot.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPatient is returned for an empty or oversized patient ID.
	ErrInvalidPatient = errors.New("invalid patient id")
)

const maxPatientIDLen = 128

// Snapshot is one stored ingest result. The newest snapshot of a patient is
// their current report.
type Snapshot struct {
	ID          uuid.UUID       `json:"id"`
	PatientID   string          `json:"patient_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"`
	Report      classify.Report `json:"report"`
	Summary     compose.Summary `json:"summary"`
	Tips        []string        `json:"tips"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	ID      uuid.UUID `json:"id"`
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Snapshots is an append-only log of report snapshots per patient.
type Snapshots interface {
	AppendSnapshot(ctx context.Context, s *Snapshot) error
	// LatestSnapshot returns ErrNotFound when the patient has none.
	LatestSnapshot(ctx context.Context, patientID string) (*Snapshot, error)
	// ListSnapshots returns up to limit snapshots, newest first. A limit of
	// zero or less returns all of them.
	ListSnapshots(ctx context.Context, patientID string, limit int) ([]*Snapshot, error)
}

// Transcripts is an append-only chat log per patient.
type Transcripts interface {
	AppendMessages(ctx context.Context, patientID string, msgs ...Message) error
	// Messages returns the last limit messages in chronological order. A limit
	// of zero or less returns all of them.
	Messages(ctx context.Context, patientID string, limit int) ([]Message, error)
}

// Store is a backend providing both logs.
type Store interface {
	Snapshots
	Transcripts
	// DeletePatient erases every snapshot and message of the patient.
	DeletePatient(ctx context.Context, patientID string) error
	Close() error
}

// NewSnapshot fills in the identity fields of a snapshot.
func NewSnapshot(patientID, filename, contentHash string) *Snapshot {
	return &Snapshot{
		ID:          uuid.Must(uuid.NewV7()),
		PatientID:   patientID,
		CreatedAt:   time.Now().UTC(),
		Filename:    filename,
		ContentHash: contentHash,
	}
}

// NewMessage builds a chat turn stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.Must(uuid.NewV7()),
		Role:    role,
		Content: content,
		Time:    time.Now().UTC(),
	}
}

func ValidatePatientID(id string) error {
	if id == "" || len(id) > maxPatientIDLen {
		return fmt.Errorf("%w: %q", ErrInvalidPatient, id)
	}
	return nil
}
