//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package debug provides a HTTP server for trying processor chains and
// inspecting how every stage of a run behaved.
package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/processor"
	atrace "trpc.group/trpc-go/trpc-processor-go/telemetry/trace"
)

// headerRequestID carries the id a run can be looked up by.
const headerRequestID = "X-Request-Id"

// Server exposes processor chains over HTTP. Named chains are built once;
// ad hoc chains are built per request from the posted configuration.
type Server struct {
	registry *processor.Registry
	router   *mux.Router

	mu     sync.RWMutex
	chains map[string]*processor.Chain

	parallelism    int
	memoryExporter *inMemoryExporter

	tp            *sdktrace.TracerProvider
	spanProcessor sdktrace.SpanProcessor
	// previous is the provider to reinstall on Close when New installed its own.
	previous  oteltrace.TracerProvider
	ownsTP    bool
	closeOnce sync.Once
}

// Option configures the Server instance.
type Option func(*Server)

// WithRegistry sets the registry ad hoc chains are built with. If omitted,
// processor.DefaultRegistry is used.
func WithRegistry(r *processor.Registry) Option {
	return func(s *Server) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithChain registers a named chain.
func WithChain(name string, chain *processor.Chain) Option {
	return func(s *Server) { s.chains[name] = chain }
}

// WithParallelism bounds how many inputs of one batch request run at once.
func WithParallelism(n int) Option {
	return func(s *Server) { s.parallelism = n }
}

// New creates a debug server. It installs an SDK tracer provider, or
// extends the installed one, so stage spans can be read back per request.
func New(opts ...Option) *Server {
	s := &Server{
		registry:       processor.DefaultRegistry,
		router:         mux.NewRouter(),
		chains:         make(map[string]*processor.Chain),
		memoryExporter: newInMemoryExporter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type", headerRequestID},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()

	if sdkTP, ok := atrace.TracerProvider.(*sdktrace.TracerProvider); ok {
		s.tp = sdkTP
	} else {
		if _, isNoop := atrace.TracerProvider.(noop.TracerProvider); !isNoop {
			log.Warnf("debug server: %T tracer provider replaced by an SDK provider", atrace.TracerProvider)
		}
		s.previous = atrace.TracerProvider
		s.tp = sdktrace.NewTracerProvider()
		s.ownsTP = true
		atrace.SetTracerProvider(s.tp)
	}
	s.spanProcessor = sdktrace.NewSimpleSpanProcessor(s.memoryExporter)
	s.tp.RegisterSpanProcessor(s.spanProcessor)
	return s
}

// Close detaches the server from tracing. The span processor registered by
// New is removed; a tracer provider New installed is shut down and the
// previous one restored. Close is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.tp.UnregisterSpanProcessor(s.spanProcessor)
		if s.ownsTP {
			atrace.SetTracerProvider(s.previous)
			err = s.tp.Shutdown(context.Background())
		}
	})
	return err
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

// AddChain registers or replaces a named chain.
func (s *Server) AddChain(name string, chain *processor.Chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[name] = chain
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/processors", s.handleListProcessors).Methods(http.MethodGet)

	s.router.HandleFunc("/chains", s.handleListChains).Methods(http.MethodGet)
	s.router.HandleFunc("/chains/{name}", s.handleCreateChain).Methods(http.MethodPut)
	s.router.HandleFunc("/chains/{name}", s.handleDeleteChain).Methods(http.MethodDelete)
	s.router.HandleFunc("/chains/{name}/process", s.handleProcessNamed).Methods(http.MethodPost)

	s.router.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)

	s.router.HandleFunc("/debug/trace/{request_id}", s.handleRequestTrace).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/trace", s.handleClearTraces).Methods(http.MethodDelete)

	// OPTIONS handlers to allow CORS pre-flight
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/process", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/chains/{name}", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/chains/{name}/process", preflight).Methods(http.MethodOptions)
}

// ---- Handlers -----------------------------------------------------------

func (s *Server) handleListProcessors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ProcessorsResponse{Types: s.registry.Types()})
}

func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	infos := make([]ChainInfo, 0, len(s.chains))
	for name, chain := range s.chains {
		infos = append(infos, ChainInfo{Name: name, Stages: chain.Len()})
	}
	s.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreateChain(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req ChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()
	chain, err := s.registry.CreateChainFrom(req.Processors)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.AddChain(name, chain)
	log.Infof("debug server: chain %q registered with %d stages", name, chain.Len())
	s.writeJSON(w, http.StatusOK, ChainInfo{Name: name, Stages: chain.Len()})
}

func (s *Server) handleDeleteChain(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.Lock()
	_, ok := s.chains[name]
	delete(s.chains, name)
	s.mu.Unlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("chain %q not found", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()
	chain, err := s.registry.CreateChainFrom(req.Processors)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.run(w, r, chain, req)
}

func (s *Server) handleProcessNamed(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.RLock()
	chain, ok := s.chains[name]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("chain %q not found", name))
		return
	}
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()
	s.run(w, r, chain, req)
}

// run processes the single input, or every input of a batch request, under
// a request span the stage spans can be found by.
func (s *Server) run(w http.ResponseWriter, r *http.Request, chain *processor.Chain, req ProcessRequest) {
	requestID := uuid.NewString()
	ctx, span := atrace.Tracer.Start(r.Context(), itelemetry.SpanNameDebugRequest,
		oteltrace.WithAttributes(attribute.String(itelemetry.KeyRequestID, requestID)))
	resp := ProcessResponse{RequestID: requestID}
	var err error
	if req.Inputs != nil {
		var opts []processor.BatchOption
		if s.parallelism > 0 {
			opts = append(opts, processor.WithParallelism(s.parallelism))
		}
		resp.Outputs, err = processor.ProcessBatch(ctx, chain, req.Inputs, opts...)
	} else {
		resp.Output = chain.ProcessContext(ctx, req.Input)
	}
	span.End()

	w.Header().Set(headerRequestID, requestID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequestTrace(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]
	finished := s.memoryExporter.getFinishedSpans(requestID)
	if len(finished) == 0 {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("trace for request %q not found", requestID))
		return
	}
	spans := make([]Span, 0, len(finished))
	for _, span := range finished {
		spans = append(spans, convertSpan(span))
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].StartTime < spans[j].StartTime })
	s.writeJSON(w, http.StatusOK, spans)
}

func (s *Server) handleClearTraces(w http.ResponseWriter, r *http.Request) {
	s.memoryExporter.clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Errorf("debug server: write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
