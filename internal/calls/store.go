package calls

import (
	"context"
	"sync"
	"time"

	"github.com/voicereach/voicereach/pkg/logging"
)

// Store is the single in-process source of truth for active call jobs, their
// contexts, and per-client submission rate counters.
//
// Every operation acquires one mutex for its full duration, reads and writes
// alike. The store is deliberately serialized: call volume per process is
// small (at most five leads per submission, human-paced call durations), so
// trivial-to-reason-about correctness wins over throughput. No caller can
// ever observe a job without its context or vice versa, because both are
// inserted and removed under the same critical section.
//
// The store is constructed explicitly and injected; there is no package-level
// instance.
type Store struct {
	mu         sync.Mutex
	jobs       map[string]*CallJob
	contexts   map[string]*ContextInstance
	rateWindow map[string][]time.Time

	cleanupCount int

	// now is swappable for deterministic TTL and rate-window tests.
	now func() time.Time

	cancelSweep context.CancelFunc
	sweepDone   chan struct{}

	// onCleanup, when set, is called outside the mutex after any sweep that
	// removed records.
	onCleanup func(removed int)

	logger *logging.Logger
}

// NewStore creates an empty store.
func NewStore(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		jobs:       make(map[string]*CallJob),
		contexts:   make(map[string]*ContextInstance),
		rateWindow: make(map[string][]time.Time),
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// AddJob inserts a job and its context atomically. IDs are freshly generated
// by the caller, so collisions cannot occur; insertion is unconditional.
func (s *Store) AddJob(job *CallJob, ctx *ContextInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	s.contexts[ctx.ID] = ctx
}

// GetJob returns the job with the given ID. Absence (never stored, or already
// swept) is reported via ok=false, not an error: expired and unknown records
// are indistinguishable by design.
func (s *Store) GetJob(id string) (*CallJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

// GetContext returns the context with the given ID, or ok=false when absent.
func (s *Store) GetContext(id string) (*ContextInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.contexts[id]
	return ctx, ok
}

// MarkJobDispatched transitions the job to in_progress and stamps its start
// time. Returns false when the job is unknown or already swept.
func (s *Store) MarkJobDispatched(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	now := s.now().UTC()
	job.Status = StatusInProgress
	job.StartedAt = &now
	return true
}

// MarkJobFailed transitions the job to failed and records the dispatch error.
// Returns false when the job is unknown or already swept.
func (s *Store) MarkJobFailed(id, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	job.Status = StatusFailed
	job.Error = errMsg
	return true
}

// CountJobs returns the number of active jobs.
func (s *Store) CountJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// CleanupExpired removes every job whose TTL has elapsed, together with its
// paired context, and returns the number of jobs removed.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()

	now := s.now()
	removed := 0
	for id, job := range s.jobs {
		if !job.isExpiredAt(now) {
			continue
		}
		delete(s.jobs, id)
		delete(s.contexts, job.ContextID)
		removed++
	}
	s.cleanupCount += removed
	hook := s.onCleanup
	s.mu.Unlock()

	if removed > 0 && hook != nil {
		hook(removed)
	}
	return removed
}

// SetCleanupHook registers a callback run after each sweep that removed at
// least one record. Set it before StartCleanup.
func (s *Store) SetCleanupHook(fn func(removed int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCleanup = fn
}

// TotalCleanups returns the monotonically increasing count of records removed
// by cleanup sweeps since the store was created.
func (s *Store) TotalCleanups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupCount
}

// CheckRateLimit applies a strict sliding-window limit for the given key
// (typically a client IP). It returns true when the request is allowed.
//
// Only allowed requests are recorded: a blocked attempt leaves no timestamp
// behind and therefore does not extend the window. This is intentionally more
// permissive under sustained hammering than a fixed-bucket counter.
func (s *Store) CheckRateLimit(key string, window time.Duration, maxRequests int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	recent := s.rateWindow[key][:0]
	for _, ts := range s.rateWindow[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= maxRequests {
		s.rateWindow[key] = recent
		return false
	}

	s.rateWindow[key] = append(recent, now)
	return true
}

// StartCleanup launches a background sweep that calls CleanupExpired on a
// fixed interval. Calling StartCleanup while a sweep is already running is a
// no-op.
func (s *Store) StartCleanup(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelSweep != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancelSweep = cancel
	s.sweepDone = done

	go s.sweepLoop(ctx, interval, done)
}

// StopCleanup cancels the background sweep and waits for it to finish. The
// sweep holds the store mutex for each full pass, so cancellation can only
// take effect between sweeps, never mid-removal. Safe to call when no sweep
// is running.
func (s *Store) StopCleanup() {
	s.mu.Lock()
	cancel := s.cancelSweep
	done := s.sweepDone
	s.cancelSweep = nil
	s.sweepDone = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.CleanupExpired(); removed > 0 {
				s.logger.Info("cleanup removed expired call jobs", "removed", removed)
			}
		}
	}
}
