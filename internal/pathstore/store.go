package pathstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/dgallion1/labgest/internal/store"
)

const (
	rootPrefix = "memory/patients"
	source     = "labgest"
)

// Store keeps snapshots and transcripts as pathstore nodes:
//
//	memory/patients/<segment>/reports/<snapshot id>
//	memory/patients/<segment>/chat/<message id>
//	memory/patients/<segment>/latest               id of the newest snapshot
//
// The segment is a readable slug of the patient ID followed by a digest of the
// raw ID, so IDs that slugify alike still get separate paths.
//
// Each new snapshot is linked to the one it supersedes. Concurrent appends for
// one patient may leave latest pointing at the older of the two.
type Store struct {
	client *Client
	log    *slog.Logger
}

func NewStore(client *Client, log *slog.Logger) *Store {
	return &Store{client: client, log: log}
}

var (
	nonSlugRe = regexp.MustCompile(`[^a-z0-9-]`)
	dashesRe  = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL/path-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = dashesRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

func patientKey(patientID string) (string, error) {
	if err := store.ValidatePatientID(patientID); err != nil {
		return "", err
	}
	return rootPrefix + "/" + patientSegment(patientID), nil
}

func patientSegment(patientID string) string {
	sum := sha256.Sum256([]byte(patientID))
	digest := hex.EncodeToString(sum[:8])
	if slug := Slugify(patientID); slug != "" {
		return slug + "-" + digest
	}
	return "p-" + digest
}

func (s *Store) AppendSnapshot(ctx context.Context, snap *store.Snapshot) error {
	base, err := patientKey(snap.PatientID)
	if err != nil {
		return err
	}

	prev, err := s.LatestSnapshot(ctx, snap.PatientID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	key := base + "/reports/" + snap.ID.String()
	if err := s.client.PutNode(ctx, key, NodeRequest{
		Value:      snap,
		MemoryType: "episodic",
		Source:     source,
	}); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	if err := s.client.PutNode(ctx, base+"/latest", NodeRequest{
		Value:     snap.ID.String(),
		MergeMode: "replace",
		Source:    source,
	}); err != nil {
		return fmt.Errorf("update latest pointer: %w", err)
	}

	if prev != nil {
		link := LinkRequest{
			From:    key,
			To:      base + "/reports/" + prev.ID.String(),
			Weight:  1,
			Summary: "supersedes",
		}
		// The snapshot is stored; a missing link only loses lineage.
		if err := s.client.PutLink(ctx, link); err != nil {
			s.log.Warn("link snapshot failed", "key", key, "error", err)
		}
	}
	return nil
}

func (s *Store) snapshots(ctx context.Context, patientID string) ([]*store.Snapshot, error) {
	base, err := patientKey(patientID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.client.ListChildren(ctx, base+"/reports", 0)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	out := make([]*store.Snapshot, 0, len(nodes))
	for _, n := range nodes {
		var snap store.Snapshot
		if err := json.Unmarshal(n.Value, &snap); err != nil {
			s.log.Warn("skipping undecodable snapshot", "key", n.Key, "error", err)
			continue
		}
		out = append(out, &snap)
	}
	// Newest first; UUIDv7 ids break ties in creation order.
	slices.SortFunc(out, func(a, b *store.Snapshot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	return out, nil
}

func (s *Store) LatestSnapshot(ctx context.Context, patientID string) (*store.Snapshot, error) {
	base, err := patientKey(patientID)
	if err != nil {
		return nil, err
	}
	notFound := fmt.Errorf("patient %q: %w", patientID, store.ErrNotFound)

	ptr, err := s.client.GetNode(ctx, base+"/latest")
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, notFound
	}
	var id string
	if err := json.Unmarshal(ptr.Value, &id); err != nil {
		return nil, fmt.Errorf("decode latest pointer: %w", err)
	}

	node, err := s.client.GetNode(ctx, base+"/reports/"+id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, notFound
	}
	var snap store.Snapshot
	if err := json.Unmarshal(node.Value, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

func (s *Store) ListSnapshots(ctx context.Context, patientID string, limit int) ([]*store.Snapshot, error) {
	list, err := s.snapshots(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (s *Store) AppendMessages(ctx context.Context, patientID string, msgs ...store.Message) error {
	base, err := patientKey(patientID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		key := base + "/chat/" + m.ID.String()
		if err := s.client.PutNode(ctx, key, NodeRequest{
			Value:      m,
			MemoryType: "episodic",
			Source:     source,
		}); err != nil {
			return fmt.Errorf("store message: %w", err)
		}
	}
	return nil
}

func (s *Store) Messages(ctx context.Context, patientID string, limit int) ([]store.Message, error) {
	base, err := patientKey(patientID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.client.ListChildren(ctx, base+"/chat", 0)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	out := make([]store.Message, 0, len(nodes))
	for _, n := range nodes {
		var m store.Message
		if err := json.Unmarshal(n.Value, &m); err != nil {
			s.log.Warn("skipping undecodable message", "key", n.Key, "error", err)
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b store.Message) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// DeletePatient removes every node stored for the patient.
func (s *Store) DeletePatient(ctx context.Context, patientID string) error {
	base, err := patientKey(patientID)
	if err != nil {
		return err
	}
	return s.client.DeleteNode(ctx, base, true)
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}
