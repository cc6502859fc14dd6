package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/labgest/internal/acquire"
	"github.com/dgallion1/labgest/internal/catalog"
	"github.com/dgallion1/labgest/internal/chat"
	"github.com/dgallion1/labgest/internal/compose"
	"github.com/dgallion1/labgest/internal/config"
	"github.com/dgallion1/labgest/internal/enhance"
	"github.com/dgallion1/labgest/internal/pipeline"
	"github.com/dgallion1/labgest/internal/store/memstore"
)

const (
	testKey      = "test-key"
	sampleReport = "Hemoglobin: 11.2 g/dL (12.0-18.0)\nWBC 9500 /uL\nTSH 5.9\n"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   10,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	cat := catalog.Default()
	enh := enhance.NewEnhancer(nil, log)
	ms := memstore.New()
	analyzer := pipeline.NewAnalyzer(cat, compose.NewComposer(cat, enh, log))
	orch := pipeline.NewOrchestrator(cfg, acquire.New(acquire.Options{}), analyzer, ms, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	agent := chat.NewAgent(enh, ms, ms, chat.DefaultWindow, log)
	return NewServer(orch, agent, ms, enh, log, cfg)
}

func do(t *testing.T, s *Server, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

// upload submits a report and waits for its job to finish.
func upload(t *testing.T, s *Server, patientID, filename, content string) map[string]any {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"patient_id": patientID}, filename, content)
	rec := do(t, s, http.MethodPost, "/api/reports", ct, body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	pollURL, _ := decode(t, rec)["poll_url"].(string)

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := do(t, s, http.MethodGet, pollURL, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 polling status, got %d", rec.Code)
		}
		status := decode(t, rec)
		if pipeline.JobStatus(status["status"].(string)).Done() {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish: %v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("expected ok body, got %q", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tc.name, rec.Code)
		}
	}
}

func TestUploadAndReadBack(t *testing.T) {
	s := newTestServer(t)
	status := upload(t, s, "patient-1", "cbc.txt", sampleReport)
	if status["status"] != string(pipeline.StatusCompleted) {
		t.Fatalf("expected completed, got %v", status)
	}

	rec := do(t, s, http.MethodGet, "/api/patients/patient-1/report", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	report := decode(t, rec)["report"].(map[string]any)
	hb := report["hemoglobin"].(map[string]any)
	if hb["status"] != "Low" {
		t.Errorf("expected hemoglobin Low, got %v", hb["status"])
	}
	if hb["reference_range"] != "12.0 - 18.0" {
		t.Errorf("expected reference range, got %v", hb["reference_range"])
	}

	rec = do(t, s, http.MethodGet, "/api/patients/patient-1/summary", "", nil)
	summary := decode(t, rec)["summary"].(map[string]any)
	if !strings.HasPrefix(summary["doctor_note"].(string), "ALERTS FOR DOCTOR:") {
		t.Errorf("expected alert note, got %v", summary["doctor_note"])
	}

	rec = do(t, s, http.MethodGet, "/api/patients/patient-1/tips", "", nil)
	tips := decode(t, rec)["tips"].([]any)
	if len(tips) != len(compose.DefaultTips) {
		t.Errorf("expected default tips, got %v", tips)
	}

	upload(t, s, "patient-1", "tsh.txt", "TSH 2.1\n")
	rec = do(t, s, http.MethodGet, "/api/patients/patient-1/history?limit=5", "", nil)
	reports := decode(t, rec)["reports"].([]any)
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if newest := reports[0].(map[string]any); newest["filename"] != "tsh.txt" {
		t.Errorf("expected newest first, got %v", newest["filename"])
	}
}

func TestUpload_Duplicate(t *testing.T) {
	s := newTestServer(t)
	upload(t, s, "patient-1", "cbc.txt", sampleReport)
	status := upload(t, s, "patient-1", "cbc.txt", sampleReport)
	if status["status"] != string(pipeline.StatusDupSkipped) {
		t.Errorf("expected duplicate_skipped, got %v", status["status"])
	}
}

func TestUpload_Rejects(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
	}{
		{"missing patient", nil, "cbc.txt"},
		{"missing file", map[string]string{"patient_id": "p1"}, ""},
		{"unsupported type", map[string]string{"patient_id": "p1"}, "cbc.xls"},
		{"image without ocr", map[string]string{"patient_id": "p1"}, "scan.png"},
	}
	for _, tc := range tests {
		body, ct := multipartBody(t, tc.fields, tc.filename, sampleReport)
		rec := do(t, s, http.MethodPost, "/api/reports", ct, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t)
	big := strings.Repeat("x", int(s.cfg.MaxUploadBytes)+10)
	body, ct := multipartBody(t, map[string]string{"patient_id": "p1"}, "big.txt", big)
	rec := do(t, s, http.MethodPost, "/api/reports", ct, body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

// batchBody builds a batch upload form. files alternates filename, content.
func batchBody(t *testing.T, patientID string, files ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("patient_id", patientID); err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(files); i += 2 {
		fw, err := mw.CreateFormFile("files", files[i])
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(files[i+1]))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func batchJobs(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	raw, ok := decode(t, rec)["jobs"].([]any)
	if !ok {
		t.Fatal("expected jobs array")
	}
	jobs := make([]map[string]any, len(raw))
	for i, j := range raw {
		jobs[i] = j.(map[string]any)
	}
	return jobs
}

func TestBatchUpload(t *testing.T) {
	s := newTestServer(t)
	big := strings.Repeat("x", int(s.cfg.MaxUploadBytes)+1)
	body, ct := batchBody(t, "patient-1",
		"cbc.txt", sampleReport,
		"virus.exe", "MZ",
		"big.txt", big,
	)
	jobs := batchJobs(t, do(t, s, http.MethodPost, "/api/reports/batch", ct, body))
	if len(jobs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(jobs))
	}

	good := jobs[0]
	if good["filename"] != "cbc.txt" || good["error"] != nil {
		t.Fatalf("expected cbc.txt queued, got %v", good)
	}
	if good["patient_id"] != "patient-1" {
		t.Errorf("expected patient-1, got %v", good["patient_id"])
	}
	if exe := jobs[1]; exe["filename"] != "virus.exe" || !strings.Contains(exe["error"].(string), "unsupported file type") {
		t.Errorf("expected unsupported type error, got %v", exe)
	}
	if tooBig := jobs[2]; tooBig["job_id"] != nil || !strings.Contains(tooBig["error"].(string), "exceeds max size") {
		t.Errorf("expected size error, got %v", tooBig)
	}

	pollURL := good["poll_url"].(string)
	deadline := time.Now().Add(5 * time.Second)
	for {
		status := decode(t, do(t, s, http.MethodGet, pollURL, "", nil))
		if status["status"] == string(pipeline.StatusCompleted) {
			break
		}
		if pipeline.JobStatus(status["status"].(string)).Done() || time.Now().After(deadline) {
			t.Fatalf("expected job to complete, got %v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := do(t, s, http.MethodGet, "/api/patients/patient-1/report", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected stored report, got %d", rec.Code)
	}
}

func TestBatchUpload_QueueFull(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   1,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	cat := catalog.Default()
	enh := enhance.NewEnhancer(nil, log)
	ms := memstore.New()
	analyzer := pipeline.NewAnalyzer(cat, compose.NewComposer(cat, enh, log))
	// Workers are never started, so the second job finds the queue full.
	orch := pipeline.NewOrchestrator(cfg, acquire.New(acquire.Options{}), analyzer, ms, log)
	t.Cleanup(orch.Stop)
	s := NewServer(orch, chat.NewAgent(enh, ms, ms, chat.DefaultWindow, log), ms, enh, log, cfg)

	body, ct := batchBody(t, "p1", "a.txt", sampleReport, "b.txt", sampleReport)
	jobs := batchJobs(t, do(t, s, http.MethodPost, "/api/reports/batch", ct, body))
	if len(jobs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(jobs))
	}
	if jobs[0]["job_id"] == nil {
		t.Errorf("expected first job queued, got %v", jobs[0])
	}
	if msg, _ := jobs[1]["error"].(string); !strings.Contains(msg, "queue is full") {
		t.Errorf("expected queue full error, got %v", jobs[1])
	}
}

func TestBatchUpload_Rejects(t *testing.T) {
	s := newTestServer(t)

	body, ct := batchBody(t, "p1")
	if rec := do(t, s, http.MethodPost, "/api/reports/batch", ct, body); rec.Code != http.StatusBadRequest {
		t.Errorf("no files: expected 400, got %d", rec.Code)
	}

	body, ct = batchBody(t, strings.Repeat("a", 129), "a.txt", sampleReport)
	rec := do(t, s, http.MethodPost, "/api/reports/batch", ct, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("long patient id: expected 400, got %d", rec.Code)
	}
	if msg := decode(t, rec)["error"].(string); !strings.Contains(msg, "invalid patient id") {
		t.Errorf("expected invalid patient id error, got %q", msg)
	}
}

func TestUpload_PatientIDErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		id   string
		want string
	}{
		{"", "patient_id is required"},
		{strings.Repeat("a", 129), "invalid patient id"},
	}
	for _, tc := range tests {
		fields := map[string]string{}
		if tc.id != "" {
			fields["patient_id"] = tc.id
		}
		body, ct := multipartBody(t, fields, "cbc.txt", sampleReport)
		rec := do(t, s, http.MethodPost, "/api/reports", ct, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id len %d: expected 400, got %d", len(tc.id), rec.Code)
		}
		if msg := decode(t, rec)["error"].(string); !strings.Contains(msg, tc.want) {
			t.Errorf("id len %d: expected %q in error, got %q", len(tc.id), tc.want, msg)
		}
	}
}

func TestReportStatus_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/reports/missing/status", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestParseReport_RawText(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/reports/parse", "text/plain", strings.NewReader(sampleReport))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode(t, rec)["report"].(map[string]any)
	if len(report) != 3 {
		t.Errorf("expected 3 fields, got %d", len(report))
	}
	if wbc := report["wbc"].(map[string]any); wbc["status"] != "Normal" || wbc["value"] != 9500.0 {
		t.Errorf("unexpected wbc %v", wbc)
	}
}

func TestParseReport_File(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, nil, "report.csv", "Test,Value,Unit\nTSH,5.9,uIU/mL\n")
	rec := do(t, s, http.MethodPost, "/api/reports/parse", ct, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode(t, rec)["report"].(map[string]any)
	if tsh := report["tsh"].(map[string]any); tsh["status"] != "High" {
		t.Errorf("expected tsh High, got %v", tsh)
	}

	body, ct = multipartBody(t, nil, "report.exe", "x")
	if rec := do(t, s, http.MethodPost, "/api/reports/parse", ct, body); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported file, got %d", rec.Code)
	}
}

func TestPatient_NoReport(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"report", "summary", "tips"} {
		rec := do(t, s, http.MethodGet, "/api/patients/nobody/"+path, "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
	rec := do(t, s, http.MethodGet, "/api/patients/nobody/history", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if reports := decode(t, rec)["reports"].([]any); len(reports) != 0 {
		t.Errorf("expected empty history, got %v", reports)
	}
}

func TestPatient_InvalidID(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/patients/"+strings.Repeat("a", 129)+"/report", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/patients/p1/chat", "application/json", strings.NewReader(`{"message":"What does my AMH mean?"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	reply := decode(t, rec)
	if reply["role"] != "assistant" || !strings.Contains(reply["content"].(string), "AMH") {
		t.Errorf("unexpected reply %v", reply)
	}

	rec = do(t, s, http.MethodGet, "/api/patients/p1/chat", "", nil)
	msgs := decode(t, rec)["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if first := msgs[0].(map[string]any); first["role"] != "user" {
		t.Errorf("expected user message first, got %v", first["role"])
	}

	tooLong := `{"message":"` + strings.Repeat("a", 4001) + `"}`
	for _, body := range []string{`{"message":"   "}`, `not json`, tooLong} {
		rec := do(t, s, http.MethodPost, "/api/patients/p1/chat", "application/json", strings.NewReader(body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestDeletePatient(t *testing.T) {
	s := newTestServer(t)
	upload(t, s, "patient-1", "cbc.txt", sampleReport)
	do(t, s, http.MethodPost, "/api/patients/patient-1/chat", "application/json", strings.NewReader(`{"message":"hi"}`))

	rec := do(t, s, http.MethodDelete, "/api/patients/patient-1", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/api/patients/patient-1/report", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/patients/patient-1/chat", "", nil)
	if msgs := decode(t, rec)["messages"].([]any); len(msgs) != 0 {
		t.Errorf("expected empty transcript, got %d messages", len(msgs))
	}
}

func TestSymptoms(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		text string
		want string
	}{
		{"sudden chest pain", "High"},
		{"mild fever since yesterday", "Moderate"},
		{"a bit tired", "Low"},
	}
	for _, tc := range tests {
		body, _ := json.Marshal(map[string]string{"text": tc.text})
		rec := do(t, s, http.MethodPost, "/api/symptoms", "application/json", bytes.NewReader(body))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := decode(t, rec)["risk"]; got != tc.want {
			t.Errorf("%q: expected %s, got %v", tc.text, tc.want, got)
		}
	}

	rec := do(t, s, http.MethodPost, "/api/symptoms", "application/json", strings.NewReader(`{"text":""}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty text, got %d", rec.Code)
	}
}

func TestLLMStats(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/stats/llm", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["available"] != false {
		t.Errorf("expected unavailable generator, got %v", body["available"])
	}
	stats := body["stats"].(map[string]any)
	if stats["count"] != 0.0 {
		t.Errorf("expected zero calls, got %v", stats["count"])
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"", "unnamed"},
		{"a..b.txt", "a_b.txt"},
	}
	for _, tc := range tests {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
