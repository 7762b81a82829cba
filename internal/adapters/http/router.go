package httpadapter

import (
	"net/http"

	"github.com/kirillkom/dataroom-assistant/internal/config"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
	"github.com/kirillkom/dataroom-assistant/internal/observability/metrics"
)

const serviceName = "api"

// Services are the inbound ports the API exposes.
type Services struct {
	Sessions ports.SessionService
	Ingest   ports.DocumentIngestor
	Catalog  ports.DocumentCatalog
	QA       ports.QuestionAnswerer
	History  ports.HistoryService

	// Breakers is optional. When set, /healthz lists open model circuits.
	Breakers BreakerReporter
}

type BreakerReporter interface {
	Degraded() []string
}

type Router struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter builds the API. m may be nil.
func NewRouter(cfg config.Config, services Services, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:      cfg,
		services: services,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.deleteSession)

	mux.HandleFunc("POST /v1/sessions/{id}/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/sessions/{id}/documents", rt.listDocuments)
	mux.HandleFunc("DELETE /v1/sessions/{id}/documents", rt.clearDocuments)
	mux.HandleFunc("DELETE /v1/sessions/{id}/documents/{doc}", rt.removeDocument)
	mux.HandleFunc("GET /v1/sessions/{id}/documents/{doc}/text", rt.documentText)

	mux.HandleFunc("POST /v1/sessions/{id}/query", rt.query)
	mux.HandleFunc("GET /v1/sessions/{id}/example-questions", rt.exampleQuestions)

	mux.HandleFunc("GET /v1/sessions/{id}/history", rt.history)
	mux.HandleFunc("GET /v1/sessions/{id}/history.xlsx", rt.exportHistory)
	mux.HandleFunc("POST /v1/feedback", rt.submitFeedback)

	var handler http.Handler = authMiddleware(rt.cfg.APIAuthToken, mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait(), rt.recordRejected)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRejected)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

// healthz stays 200 while model circuits are open: sessions and history
// still work, only ingestion and answers fail fast.
func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	if rt.services.Breakers != nil {
		if open := rt.services.Breakers.Degraded(); len(open) > 0 {
			writeJSON(w, http.StatusOK, map[string]any{"status": "degraded", "open_circuits": open})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	id, err := rt.services.Sessions.CreateSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Sessions.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
