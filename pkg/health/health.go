package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Checker probes one dependency. A nil error means healthy.
type Checker func(ctx context.Context) error

// Status of a component or of the whole process.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Response is the body served by both health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single Checker.
type CheckResult struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Handler serves liveness and readiness probes.
type Handler struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewHandler returns a Handler whose readiness checks share a 5s budget.
func NewHandler() *Handler {
	return &Handler{timeout: 5 * time.Second, checkers: make(map[string]Checker)}
}

// Register adds or replaces the checker stored under name.
func (h *Handler) Register(name string, c Checker) {
	h.mu.Lock()
	h.checkers[name] = c
	h.mu.Unlock()
}

// Check runs every registered checker concurrently.
func (h *Handler) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, c := range h.checkers {
		checkers[name] = c
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checkers))
		overall = StatusUp
	)
	var g errgroup.Group
	for name, c := range checkers {
		g.Go(func() error {
			res := CheckResult{Status: StatusUp}
			if err := c(ctx); err != nil {
				res = CheckResult{Status: StatusDown, Error: err.Error()}
			}
			mu.Lock()
			results[name] = res
			if res.Status == StatusDown {
				overall = StatusDown
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Response{Status: overall, Timestamp: time.Now().UTC(), Checks: results}
}

// LivenessHandler reports up whenever the process can serve HTTP.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler answers 503 when any dependency is down.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		write(w, status, resp)
	}
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
