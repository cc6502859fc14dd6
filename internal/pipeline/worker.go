package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/labgest/internal/acquire"
	"github.com/dgallion1/labgest/internal/store"
)

// Worker processes a single report job.
type Worker struct {
	acquirer  *acquire.Acquirer
	analyzer  *Analyzer
	snapshots store.Snapshots
	log       *slog.Logger
}

func NewWorker(acquirer *acquire.Acquirer, analyzer *Analyzer, snapshots store.Snapshots, log *slog.Logger) *Worker {
	return &Worker{
		acquirer:  acquirer,
		analyzer:  analyzer,
		snapshots: snapshots,
		log:       log,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "patient_id", job.PatientID, "filename", job.Filename)

	// Phase 1: Acquire text
	job.SetStatus(StatusAcquiring, "acquiring")
	text, err := w.acquirer.Extract(ctx, bytes.NewReader(job.FileData()), job.Filename)
	job.releaseFileData()
	if err != nil {
		log.Error("acquisition failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "acquiring")
		return
	}
	job.SetTextLines(countLines(text))
	job.SetContentHash(ContentHashHex([]byte(text)))

	// Phase 1.5: Dedup check against the current snapshot.
	if !job.Force {
		dup, existing, err := w.checkDuplicate(ctx, job)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if dup {
			log.Info("duplicate report, skipping", "existing_snapshot", existing.ID)
			job.SetResult(&Result{
				SnapshotID: existing.ID.String(),
				Report:     existing.Report,
				Summary:    existing.Summary,
				Tips:       existing.Tips,
			})
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Parse and classify
	job.SetStatus(StatusParsing, "parsing")
	report := w.analyzer.Classify(text)
	log.Info("parsed report", "fields", len(report))

	// Phase 3: Compose
	job.SetStatus(StatusComposing, "composing")
	an := w.analyzer.Summarize(ctx, report)
	tips := w.analyzer.Tips(ctx, an)

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	snap := store.NewSnapshot(job.PatientID, job.Filename, job.Snapshot().ContentHash)
	snap.Report = an.Report
	snap.Summary = an.Summary
	snap.Tips = tips
	if err := w.snapshots.AppendSnapshot(ctx, snap); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	job.SetResult(&Result{
		SnapshotID: snap.ID.String(),
		Report:     an.Report,
		Summary:    an.Summary,
		Tips:       tips,
	})
	log.Info("report stored", "snapshot_id", snap.ID, "alerts", len(an.Summary.Alerts))
	job.SetStatus(StatusCompleted, "done")
}

// checkDuplicate reports whether the job's text matches the patient's latest
// snapshot.
func (w *Worker) checkDuplicate(ctx context.Context, job *Job) (bool, *store.Snapshot, error) {
	latest, err := w.snapshots.LatestSnapshot(ctx, job.PatientID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return latest.ContentHash == job.Snapshot().ContentHash, latest, nil
}

func countLines(text string) int {
	n := 0
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			n++
		}
	}
	return n
}
