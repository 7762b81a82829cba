package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	queryEndpoint   = "query"
	maxQueryBody    = 64 << 10
	maxExampleCount = 10
)

type queryRequest struct {
	Question string `json:"question"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	answer, err := rt.services.QA.Answer(r.Context(), r.PathValue("id"), req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rt.metrics != nil && !answer.NoDocuments {
		rt.metrics.RecordRAGObservation(serviceName, queryEndpoint, len(answer.Context), time.Since(start))
		if answer.Usage != nil {
			rt.metrics.RecordTokenUsage(serviceName, queryEndpoint, answer.Usage.Model, answer.Usage.PromptTokens, answer.Usage.CompletionTokens)
		}
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) exampleQuestions(w http.ResponseWriter, r *http.Request) {
	count := rt.cfg.ExampleCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxExampleCount {
			writeErrorMessage(w, http.StatusBadRequest, "count must be between 1 and 10")
			return
		}
		count = n
	}

	questions, err := rt.services.QA.ExampleQuestions(r.Context(), r.PathValue("id"), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}
