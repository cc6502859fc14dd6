// Package pgstore keeps snapshots and transcripts in PostgreSQL.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgallion1/labgest/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects to databaseURL, applies pending migrations and returns a
// ready store.
func Open(ctx context.Context, databaseURL string, log *slog.Logger) (*Store, error) {
	if err := MigrateUp(databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("connected to postgres", "max_conns", cfg.MaxConns)
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) DeletePatient(ctx context.Context, patientID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM snapshots WHERE patient_id = $1`, patientID); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE patient_id = $1`, patientID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const snapshotColumns = `id, patient_id, created_at, filename, content_hash, report, summary, tips`

func (s *Store) AppendSnapshot(ctx context.Context, snap *store.Snapshot) error {
	if err := store.ValidatePatientID(snap.PatientID); err != nil {
		return err
	}
	report, err := json.Marshal(snap.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	summary, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	tips, err := json.Marshal(snap.Tips)
	if err != nil {
		return fmt.Errorf("marshal tips: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (`+snapshotColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snap.ID, snap.PatientID, snap.CreatedAt, snap.Filename, snap.ContentHash, report, summary, tips,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context, patientID string) (*store.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots
		 WHERE patient_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, patientID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient %q: %w", patientID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) ListSnapshots(ctx context.Context, patientID string, limit int) ([]*store.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots
		WHERE patient_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{patientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*store.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*store.Snapshot, error) {
	var (
		snap                  store.Snapshot
		report, summary, tips []byte
	)
	if err := row.Scan(&snap.ID, &snap.PatientID, &snap.CreatedAt, &snap.Filename, &snap.ContentHash,
		&report, &summary, &tips); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(report, &snap.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if err := json.Unmarshal(summary, &snap.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal(tips, &snap.Tips); err != nil {
		return nil, fmt.Errorf("decode tips: %w", err)
	}
	snap.CreatedAt = snap.CreatedAt.UTC()
	return &snap, nil
}

func (s *Store) AppendMessages(ctx context.Context, patientID string, msgs ...store.Message) error {
	if err := store.ValidatePatientID(patientID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`INSERT INTO chat_messages (id, patient_id, role, content, created_at)
			VALUES ($1, $2, $3, $4, $5)`, m.ID, patientID, string(m.Role), m.Content, m.Time)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert messages: %w", err)
	}
	return nil
}

func (s *Store) Messages(ctx context.Context, patientID string, limit int) ([]store.Message, error) {
	query := `SELECT id, role, content, created_at FROM chat_messages
		WHERE patient_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{patientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []store.Message
	for rows.Next() {
		var (
			m    store.Message
			role string
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.Time); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = store.Role(role)
		m.Time = m.Time.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(out)
	return out, nil
}
