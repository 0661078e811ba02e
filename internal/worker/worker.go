// Package worker runs named periodic maintenance jobs in process.
package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zenfocus/backend/internal/logger"
)

const jobTimeout = 30 * time.Second

// JobFunc runs one pass of a job. A failed pass is logged and waits for the
// next interval; it is never retried early.
type JobFunc func(ctx context.Context) error

type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

type JobStats struct {
	Name      string    `json:"name"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

type Worker struct {
	mu      sync.RWMutex
	jobs    map[string]Job
	stats   map[string]*JobStats
	running bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker() *Worker {
	return &Worker{
		jobs:  make(map[string]Job),
		stats: make(map[string]*JobStats),
	}
}

// RegisterJob adds a job. Jobs registered after Start are not scheduled.
func (w *Worker) RegisterJob(name string, interval time.Duration, fn JobFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.jobs[name] = Job{Name: name, Interval: interval, Run: fn}
	w.stats[name] = &JobStats{Name: name}
}

func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	jobs := make([]Job, 0, len(w.jobs))
	for _, j := range w.jobs {
		jobs = append(jobs, j)
	}
	w.mu.Unlock()

	logger.Info("starting worker", "jobs", len(jobs))
	for _, j := range jobs {
		w.wg.Add(1)
		go w.loop(ctx, j)
	}
}

func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	logger.Info("worker stopped")
}

func (w *Worker) loop(ctx context.Context, j Job) {
	defer w.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = w.execute(ctx, j)
		}
	}
}

// RunOnce executes the named job immediately.
func (w *Worker) RunOnce(ctx context.Context, name string) error {
	w.mu.RLock()
	j, ok := w.jobs[name]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no job registered with name %q", name)
	}
	return w.execute(ctx, j)
}

func (w *Worker) execute(ctx context.Context, j Job) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	err := j.Run(ctx)

	w.mu.Lock()
	s := w.stats[j.Name]
	s.Runs++
	s.LastRun = time.Now()
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
	w.mu.Unlock()

	if err != nil {
		logger.Error("job failed", "job", j.Name, "error", err)
		return err
	}
	logger.Debug("job completed", "job", j.Name)
	return nil
}

// Stats lists per-job counters sorted by name.
func (w *Worker) Stats() []JobStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]JobStats, 0, len(w.stats))
	for _, s := range w.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
