package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/labgest/internal/chat"
	"github.com/dgallion1/labgest/internal/config"
	"github.com/dgallion1/labgest/internal/enhance"
	"github.com/dgallion1/labgest/internal/pipeline"
	"github.com/dgallion1/labgest/internal/store"
)

// Server is the HTTP API server for labgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	agent        *chat.Agent
	store        store.Store
	enhancer     *enhance.Enhancer
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, agent *chat.Agent, st store.Store, enhancer *enhance.Enhancer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		agent:        agent,
		store:        st,
		enhancer:     enhancer,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/reports", s.handleUploadReport)
		r.Post("/api/reports/batch", s.handleBatchUpload)
		r.Post("/api/reports/parse", s.handleParseReport)
		r.Get("/api/reports/{jobID}/status", s.handleReportStatus)

		r.Route("/api/patients/{patientID}", func(r chi.Router) {
			r.Use(patientIDMiddleware)
			r.Get("/report", s.handleCurrentReport)
			r.Get("/history", s.handleHistory)
			r.Get("/summary", s.handleSummary)
			r.Get("/tips", s.handleTips)
			r.Get("/chat", s.handleChatHistory)
			r.Post("/chat", s.handleChat)
			r.Delete("/", s.handleDeletePatient)
		})

		r.Post("/api/symptoms", s.handleSymptoms)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
