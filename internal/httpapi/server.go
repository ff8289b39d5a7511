// Package httpapi is the process's control surface: a small net/http
// server for submitting events for evaluation, and for managing the
// durable rule set. A mutex-guarded engine reference is swapped out
// whenever rules change, so in-flight evaluations never observe a
// half-updated set.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edr-filterd/filterd/internal/store"
	"github.com/edr-filterd/filterd/internal/tracing"
	"github.com/edr-filterd/filterd/pkg/condition"
	"github.com/edr-filterd/filterd/pkg/ruleset"
	"github.com/edr-filterd/filterd/pkg/sigma"
)

// Server holds the live Ruleset and everything needed to rebuild it when
// rules change. rs is swapped atomically under mu so evaluate requests
// never race a rule reload.
type Server struct {
	mu    sync.RWMutex
	rs    *ruleset.Ruleset
	store *store.Postgres
	log   zerolog.Logger

	tracer condition.Tracer
}

// New builds a Server around an already-compiled Ruleset and store.
func New(rs *ruleset.Ruleset, st *store.Postgres, log zerolog.Logger) *Server {
	return &Server{
		rs:     rs,
		store:  st,
		log:    log,
		tracer: tracing.NewZerologTracer(log),
	}
}

// RegisterRoutes wires every handler onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("/api/v1/evaluate/trace", s.handleEvaluateTrace)
	mux.HandleFunc("/api/v1/rules", s.handleRules)
}

func (s *Server) currentRuleset() *ruleset.Ruleset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rs
}

// swap replaces the live Ruleset. Called after a rule is saved.
func (s *Server) swap(rs *ruleset.Ruleset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rs = rs
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type evaluateRequest struct {
	Event json.RawMessage `json:"event"`
}

type evaluateResponse struct {
	Matches []ruleset.MatchedRule `json:"matches"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	doc, err := condition.DecodeMapDocument(req.Event)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad event: %v", err), http.StatusBadRequest)
		return
	}

	matches, err := s.currentRuleset().Evaluate(doc.Root(), doc)
	if err != nil {
		http.Error(w, fmt.Sprintf("evaluate: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Matches: matches})
}

type evaluateTraceRequest struct {
	Event   json.RawMessage `json:"event"`
	RuleYML string          `json:"rule_yaml"`
}

type evaluateTraceResponse struct {
	Matched bool     `json:"matched"`
	Trace   []string `json:"trace"`
}

// handleEvaluateTrace compiles a single ad-hoc rule with a capturing
// tracer, so a caller can debug a rule before persisting it, without
// disturbing the live Ruleset or its zerolog output.
func (s *Server) handleEvaluateTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req evaluateTraceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	rawDoc, err := sigma.LoadYAML([]byte(req.RuleYML))
	if err != nil {
		http.Error(w, fmt.Sprintf("bad rule: %v", err), http.StatusBadRequest)
		return
	}
	slice := &tracing.SliceTracer{}
	compiled, err := sigma.CompileRule(rawDoc, slice)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad rule: %v", err), http.StatusBadRequest)
		return
	}

	doc, err := condition.DecodeMapDocument(req.Event)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad event: %v", err), http.StatusBadRequest)
		return
	}
	matched, err := compiled.Evaluate(doc)
	if err != nil {
		http.Error(w, fmt.Sprintf("evaluate: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, evaluateTraceResponse{Matched: matched, Trace: slice.Lines()})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRules(w, r)
	case http.MethodPost:
		s.createRule(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.LoadEnabledRules(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("load rules: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// createRule validates the submitted rule by compiling it, persists it,
// then reloads every enabled rule from the store and swaps in a freshly
// compiled Ruleset so the change takes effect immediately.
func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	body, err := readAll(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}
	doc, err := sigma.LoadYAML(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad rule: %v", err), http.StatusBadRequest)
		return
	}
	if _, err := sigma.CompileRule(doc, condition.NopTracer); err != nil {
		http.Error(w, fmt.Sprintf("rule does not compile: %v", err), http.StatusBadRequest)
		return
	}

	rec := store.RuleRecord{ID: doc.ID, Title: doc.Title, Level: doc.Level, YAML: string(body), Enabled: true}
	if err := s.store.SaveRule(r.Context(), rec); err != nil {
		http.Error(w, fmt.Sprintf("save rule: %v", err), http.StatusInternalServerError)
		return
	}

	if err := s.reload(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("rule saved but ruleset reload failed")
	}
	w.WriteHeader(http.StatusCreated)
}

// reload rebuilds the live Ruleset from every enabled rule in the store.
func (s *Server) reload(ctx context.Context) error {
	recs, err := s.store.LoadEnabledRules(ctx)
	if err != nil {
		return fmt.Errorf("httpapi: load enabled rules: %w", err)
	}
	docs := make([]sigma.RuleDoc, 0, len(recs))
	for _, rec := range recs {
		doc, err := sigma.LoadYAML([]byte(rec.YAML))
		if err != nil {
			return fmt.Errorf("httpapi: reparse stored rule %s: %w", rec.ID, err)
		}
		docs = append(docs, doc)
	}
	rs, err := ruleset.Compile(docs, s.tracer)
	if err != nil {
		return fmt.Errorf("httpapi: recompile ruleset: %w", err)
	}
	s.swap(rs)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
