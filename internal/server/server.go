// Package server exposes layup optimization as HTTP and JSON-RPC jobs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/LAYUP/internal/config"
	"github.com/copyleftdev/LAYUP/internal/logging"
	"github.com/copyleftdev/LAYUP/internal/optimization"
	"github.com/copyleftdev/LAYUP/internal/optimization/annealing"
	"github.com/copyleftdev/LAYUP/internal/optimization/clt"
	"github.com/copyleftdev/LAYUP/internal/store"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// JobState tracks one layup optimization job. Jobs move through
// pending -> running -> completed|failed|cancelled; state is guarded by the
// server's job mutex and may be read while the optimizer runs.
type JobState struct {
	ID          string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	Progress    float64
	Best        *optimization.Solution
	Optimizer   optimization.Optimizer
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// LayupRequest is the wire format for starting an optimization.
type LayupRequest struct {
	Material struct {
		E1   float64 `json:"e1"`
		E2   float64 `json:"e2"`
		G12  float64 `json:"g12"`
		Nu12 float64 `json:"nu12"`
	} `json:"material"`
	PlyThickness       float64   `json:"ply_thickness"`
	AllowedAngles      []float64 `json:"allowed_angles"`
	MinPercent         float64   `json:"min_percent"`
	MinFullPlies       int       `json:"min_full_plies"`
	MaxFullPlies       int       `json:"max_full_plies"`
	PerPlyWeight       float64   `json:"per_ply_weight"`
	Iterations         int       `json:"iterations"`
	InitialTemperature float64   `json:"initial_temperature"`
	CoolingRate        float64   `json:"cooling_rate"`
	Seed               int64     `json:"seed"`
}

// Server manages layup optimization jobs and their HTTP/JSON-RPC surface.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *Metrics
	store   *store.Store // optional, nil disables persistence

	jobs   map[string]*JobState
	jobsMu sync.RWMutex
}

// NewServer creates a new server instance. The store may be nil, in which
// case completed results are kept in memory only.
func NewServer(cfg *config.Config, logger Logger, metrics *Metrics, st *store.Store) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		store:   st,
		jobs:    make(map[string]*JobState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/layups", s.handleStart)
		r.Get("/layups/{id}", s.handleStatus)
		r.Delete("/layups/{id}", s.handleCancel)
		r.Get("/layups/{id}/export", s.handleExport)
		r.Get("/results", s.handleResults)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// toConfig converts a request into an engine configuration, filling search
// defaults from the service configuration where the request leaves zeros.
func (s *Server) toConfig(req *LayupRequest) annealing.Config {
	cfg := annealing.Config{
		Material: clt.Constants{
			E1:   req.Material.E1,
			E2:   req.Material.E2,
			G12:  req.Material.G12,
			Nu12: req.Material.Nu12,
		},
		PlyThickness:       req.PlyThickness,
		AllowedAngles:      req.AllowedAngles,
		MinPercent:         req.MinPercent,
		MinFullPlies:       req.MinFullPlies,
		MaxFullPlies:       req.MaxFullPlies,
		PerPlyWeight:       req.PerPlyWeight,
		Iterations:         req.Iterations,
		InitialTemperature: req.InitialTemperature,
		CoolingRate:        req.CoolingRate,
		Seed:               req.Seed,
		ReportEvery:        s.cfg.Annealing.ReportEvery,
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = s.cfg.Annealing.Iterations
	}
	if cfg.InitialTemperature == 0 {
		cfg.InitialTemperature = s.cfg.Annealing.InitialTemperature
	}
	if cfg.CoolingRate == 0 {
		cfg.CoolingRate = s.cfg.Annealing.CoolingRate
	}
	return cfg
}

// startJob validates the request, creates the optimizer and launches the
// search in a goroutine. It is shared by the HTTP and JSON-RPC surfaces.
func (s *Server) startJob(req *LayupRequest) (*JobState, error) {
	engineCfg := s.toConfig(req)

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	// Progress snapshots land in the job state at the engine's report
	// cadence; the numeric core stays unaware of the server.
	iterations := engineCfg.Iterations
	engineCfg.Observer = func(p optimization.Progress) {
		s.jobsMu.Lock()
		if state, ok := s.jobs[id]; ok {
			state.Progress = float64(p.Iteration) / float64(iterations)
			state.LastUpdated = time.Now()
		}
		s.jobsMu.Unlock()
	}

	opt, err := annealing.New(engineCfg)
	if err != nil {
		cancel()
		return nil, err
	}

	state := &JobState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		Optimizer:   opt,
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.jobsMu.Lock()
	s.jobs[id] = state
	s.jobsMu.Unlock()

	s.metrics.jobStarted()
	go s.runJob(ctx, state)

	return state, nil
}

// runJob executes the optimization and records the terminal state.
func (s *Server) runJob(ctx context.Context, state *JobState) {
	s.jobsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	start := time.Now()
	result, err := state.Optimizer.Optimize(ctx)

	s.jobsMu.Lock()
	status := "completed"
	switch {
	case err == context.Canceled:
		status = "cancelled"
	case err != nil:
		status = "failed"
		s.logger.Error("Optimization failed", map[string]interface{}{
			"job_id": state.ID,
			"error":  err.Error(),
		})
	default:
		state.Best = result.Best
		state.Progress = 1
	}
	if state.Status != "cancelled" {
		state.Status = status
	}
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	best := state.Best
	s.jobsMu.Unlock()

	s.metrics.jobFinished(status, time.Since(start).Seconds())

	if status == "completed" && best != nil {
		s.persist(state.ID, best)
	}
}

// persist saves a completed result when a store is configured.
func (s *Server) persist(id string, best *optimization.Solution) {
	if s.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.store.Save(ctx, &store.Record{
		ID:        id,
		Sequence:  best.Sequence,
		Objective: best.Objective,
		PlyCount:  best.PlyCount(),
	})
	if err != nil {
		s.logger.Error("Failed to persist result", map[string]interface{}{
			"job_id": id,
			"error":  err.Error(),
		})
		return
	}
	s.logger.Info("Result persisted", map[string]interface{}{"job_id": id})
}

// jobStatus builds the status payload for a job.
func (s *Server) jobStatus(id string) (map[string]interface{}, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("layup job not found")
	}

	response := map[string]interface{}{
		"job_id":      state.ID,
		"status":      state.Status,
		"progress":    state.Progress,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}

	best := state.Best
	if best == nil && state.Optimizer != nil {
		best = state.Optimizer.BestSolution()
	}
	if best != nil {
		response["best"] = map[string]interface{}{
			"sequence":  best.Sequence,
			"objective": best.Objective,
			"ply_count": best.PlyCount(),
		}
	}

	return response, nil
}

// cancelJob requests cancellation of a running job.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("layup job not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel job with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Layup job cancelled", map[string]interface{}{"job_id": id})
	return nil
}

// completedBest returns the best solution of a completed job.
func (s *Server) completedBest(id string) (*optimization.Solution, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("layup job not found")
	}
	if state.Status != "completed" || state.Best == nil {
		return nil, fmt.Errorf("job %s has no completed result (status: %s)", id, state.Status)
	}
	return state.Best, nil
}

// Close cancels all running jobs.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}

// ---- HTTP handlers ----

// handleStart handles POST /api/v1/layups.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req LayupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	state, err := s.startJob(&req)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": state.ID,
		"status": state.Status,
	})
}

// handleStatus handles GET /api/v1/layups/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing job ID"})
		return
	}

	status, err := s.jobStatus(id)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleCancel handles DELETE /api/v1/layups/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing job ID"})
		return
	}

	if err := s.cancelJob(id); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleResults handles GET /api/v1/results, listing persisted layups.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "persistence is not configured"})
		return
	}

	records, err := s.store.List(r.Context(), 100)
	if err != nil {
		s.logger.Error("Failed to list results", map[string]interface{}{"error": err.Error()})
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to list results"})
		return
	}

	payload := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		payload = append(payload, map[string]interface{}{
			"job_id":     rec.ID,
			"sequence":   rec.Sequence,
			"objective":  rec.Objective,
			"ply_count":  rec.PlyCount,
			"created_at": rec.CreatedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": payload})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// ---- JSON-RPC 2.0 ----

// handleJSONRPC routes layup.start, layup.status and layup.cancel.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "layup.start":
		result, err = s.rpcStart(request.Params)
	case "layup.status":
		result, err = s.rpcStatus(request.Params)
	case "layup.cancel":
		err = s.rpcCancel(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func (s *Server) rpcStart(params json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}

	var req LayupRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("invalid parameters: %v", err)
	}

	state, err := s.startJob(&req)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"job_id": state.ID,
		"status": state.Status,
	}, nil
}

type rpcJobParams struct {
	JobID string `json:"job_id"`
}

func decodeJobParams(params json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}
	var p rpcJobParams
	if err := json.Unmarshal(params, &p); err != nil {
		return "", fmt.Errorf("invalid parameters: %v", err)
	}
	if p.JobID == "" {
		return "", fmt.Errorf("job_id is required")
	}
	return p.JobID, nil
}

func (s *Server) rpcStatus(params json.RawMessage) (interface{}, error) {
	id, err := decodeJobParams(params)
	if err != nil {
		return nil, err
	}
	return s.jobStatus(id)
}

func (s *Server) rpcCancel(params json.RawMessage) error {
	id, err := decodeJobParams(params)
	if err != nil {
		return err
	}
	return s.cancelJob(id)
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
