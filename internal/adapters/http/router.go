package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/routers"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
	"github.com/kirillkom/support-agent/internal/observability/metrics"
)

const maxRequestBodyBytes = 1 << 20

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
}

type Router struct {
	agent     ports.QueryProcessor
	knowledge ports.KnowledgeService
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
	opts      Options
	schema    routers.Router

	// The agent owns one conversation; queries must not interleave.
	agentMu sync.Mutex
}

// NewRouter wires the API. httpMetrics may be nil, in which case /metrics is
// not served.
func NewRouter(
	agent ports.QueryProcessor,
	knowledge ports.KnowledgeService,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	opts Options,
) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := loadOpenAPIRouter()
	if err != nil {
		return nil, err
	}
	return &Router{
		agent:     agent,
		knowledge: knowledge,
		metrics:   httpMetrics,
		logger:    logger,
		opts:      opts,
		schema:    schema,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/query", rt.processQuery)
	mux.HandleFunc("GET /v1/conversation", rt.conversation)
	mux.HandleFunc("POST /v1/conversation/reset", rt.resetConversation)
	mux.HandleFunc("GET /v1/session/summary", rt.sessionSummary)
	mux.HandleFunc("GET /v1/faqs", rt.searchFAQs)
	mux.HandleFunc("POST /v1/faqs", rt.addFAQ)
	mux.HandleFunc("GET /v1/faqs/{faq_id}", rt.getFAQ)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = requestValidationMiddleware(rt.schema, mux)
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.QueueWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) processQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rt.agentMu.Lock()
	result := rt.agent.ProcessQuery(r.Context(), req.Query)
	rt.agentMu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) conversation(w http.ResponseWriter, _ *http.Request) {
	turns := rt.agent.History()
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns, "count": len(turns)})
}

func (rt *Router) resetConversation(w http.ResponseWriter, _ *http.Request) {
	rt.agentMu.Lock()
	rt.agent.ResetConversation()
	rt.agentMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (rt *Router) sessionSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.agent.SessionSummary())
}

func (rt *Router) searchFAQs(w http.ResponseWriter, r *http.Request) {
	items, err := rt.knowledge.SearchByKeyword(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"faqs": items, "count": len(items)})
}

func (rt *Router) addFAQ(w http.ResponseWriter, r *http.Request) {
	var draft domain.FAQDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := rt.knowledge.AddFAQ(r.Context(), draft)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (rt *Router) getFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("faq_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "faq id must be an integer")
		return
	}
	item, err := rt.knowledge.GetFAQ(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return errors.New("invalid json")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
