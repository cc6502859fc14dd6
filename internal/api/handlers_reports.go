package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/labgest/internal/acquire"
	"github.com/dgallion1/labgest/internal/pipeline"
	"github.com/dgallion1/labgest/internal/store"
)

func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	patientID, err := formPatientID(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if msg := s.rejectFile(filename); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}

	data, status, err := s.readUpload(file)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	force, _ := strconv.ParseBool(r.FormValue("force"))
	job := pipeline.NewJob(patientID, filename, data, force)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, submitted(job))
}

// handleBatchUpload queues several reports of one patient.
func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	patientID, err := formPatientID(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	force, _ := strconv.ParseBool(r.FormValue("force"))

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if msg := s.rejectFile(filename); msg != "" {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    msg,
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}
		data, _, err := s.readUpload(f)
		f.Close()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		job := pipeline.NewJob(patientID, filename, data, force)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		res := submitted(job)
		res["filename"] = filename
		results = append(results, res)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleParseReport analyzes a report without storing it. The body is either
// a multipart form with a file or the raw report text.
func (s *Server) handleParseReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	var text string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, status, err := s.readUpload(file)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
		filename := sanitizeFilename(header.Filename)
		text, err = s.orchestrator.Acquirer().Extract(r.Context(), bytes.NewReader(data), filename)
		if errors.Is(err, acquire.ErrUnsupported) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			s.log.Error("parse acquisition failed", "filename", filename, "error", err)
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	} else {
		data, status, err := s.readUpload(r.Body)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
		text = string(data)
	}

	an := s.orchestrator.Analyzer().Analyze(r.Context(), text)
	writeJSON(w, http.StatusOK, an)
}

// readUpload reads at most MaxUploadBytes. The int is the HTTP status to use
// on error.
func (s *Server) readUpload(r io.Reader) ([]byte, int, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("request exceeds max size (%d bytes)", maxErr.Limit)
		}
		return nil, http.StatusBadRequest, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return data, http.StatusOK, nil
}

// rejectFile returns why a file cannot be queued, or "" when it can.
func (s *Server) rejectFile(filename string) string {
	acq := s.orchestrator.Acquirer()
	if acq.Accepts(filename) {
		return ""
	}
	if acquire.IsImage(filename) {
		return "image uploads require OCR, which is disabled"
	}
	return fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename))
}

func formPatientID(r *http.Request) (string, error) {
	id := r.FormValue("patient_id")
	if id == "" {
		return "", errors.New("patient_id is required")
	}
	if err := store.ValidatePatientID(id); err != nil {
		return "", err
	}
	return id, nil
}

func submitted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":     snap.ID,
		"patient_id": snap.PatientID,
		"status":     snap.Status,
		"poll_url":   fmt.Sprintf("/api/reports/%s/status", snap.ID),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
