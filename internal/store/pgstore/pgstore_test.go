package pgstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/labgest/internal/catalog"
	"github.com/dgallion1/labgest/internal/classify"
	"github.com/dgallion1/labgest/internal/compose"
	"github.com/dgallion1/labgest/internal/extract"
	"github.com/dgallion1/labgest/internal/store"
)

var _ store.Store = (*Store)(nil)

// Integration tests run against DATABASE_URL and are skipped without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	s, err := Open(context.Background(), url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func uniquePatient() string {
	return "test-" + uuid.NewString()
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	patient := uniquePatient()

	if _, err := s.LatestSnapshot(ctx, patient); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ref := "12.0 - 18.0"
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		snap := store.NewSnapshot(patient, fmt.Sprintf("r%d.pdf", i), fmt.Sprintf("hash%d", i))
		snap.CreatedAt = base.Add(time.Duration(i) * time.Second)
		snap.Report = classify.Report{
			catalog.Hemoglobin: {
				Observation: extract.Observation{Value: 11.2, Unit: "g/dl", ReferenceRange: &ref},
				Status:      classify.StatusLow,
			},
		}
		snap.Summary = compose.Summary{English: "summary", DoctorNote: "note"}
		snap.Tips = []string{"Drink water"}
		if err := s.AppendSnapshot(ctx, snap); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	latest, err := s.LatestSnapshot(ctx, patient)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Filename != "r2.pdf" || latest.ContentHash != "hash2" {
		t.Errorf("expected newest snapshot, got %+v", latest)
	}
	f := latest.Report[catalog.Hemoglobin]
	if f.Value != 11.2 || f.Status != classify.StatusLow || f.ReferenceRange == nil || *f.ReferenceRange != ref {
		t.Errorf("report did not round-trip: %+v", f)
	}
	if latest.Summary.DoctorNote != "note" || len(latest.Tips) != 1 {
		t.Errorf("summary or tips did not round-trip: %+v", latest)
	}

	list, err := s.ListSnapshots(ctx, patient, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Filename != "r2.pdf" || list[1].Filename != "r1.pdf" {
		t.Errorf("expected r2, r1; got %d entries", len(list))
	}
}

func TestMessagesWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	patient := uniquePatient()

	base := time.Now().UTC()
	var msgs []store.Message
	for i := 0; i < 4; i++ {
		m := store.NewMessage(store.RoleUser, fmt.Sprintf("m%d", i))
		m.Time = base.Add(time.Duration(i) * time.Second)
		msgs = append(msgs, m)
	}
	if err := s.AppendMessages(ctx, patient, msgs...); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Messages(ctx, patient, 2)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(got) != 2 || got[0].Content != "m2" || got[1].Content != "m3" {
		t.Errorf("expected chronological m2, m3; got %+v", got)
	}
}

func TestDeletePatient(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	patient := uniquePatient()

	if err := s.AppendSnapshot(ctx, store.NewSnapshot(patient, "a.pdf", "h")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendMessages(ctx, patient, store.NewMessage(store.RoleUser, "hi")); err != nil {
		t.Fatalf("append messages: %v", err)
	}
	if err := s.DeletePatient(ctx, patient); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LatestSnapshot(ctx, patient); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if msgs, _ := s.Messages(ctx, patient, 0); len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}

func TestVersionAfterMigrate(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := MigrateUp(url); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	v, err := Version(url)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v < 1 {
		t.Errorf("expected version >= 1, got %d", v)
	}
}
