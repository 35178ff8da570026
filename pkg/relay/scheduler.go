package relay

import (
	"sync"
	"time"

	"github.com/appnet-org/tio/pkg/logging"
	"go.uber.org/zap"
)

// JobKey identifies a periodic job.
type JobKey string

type job struct {
	key      JobKey
	interval time.Duration
	fn       func()
	stop     chan struct{}
}

// Scheduler runs periodic jobs, each on its own goroutine.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[JobKey]*job
	stopAll chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		jobs:    make(map[JobKey]*job),
		stopAll: make(chan struct{}),
	}
}

// Every runs fn every interval until the job is cancelled or the scheduler
// stops. A job with the same key is replaced.
func (s *Scheduler) Every(key JobKey, interval time.Duration, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if existing, ok := s.jobs[key]; ok {
		delete(s.jobs, key)
		close(existing.stop)
	}
	j := &job{key: key, interval: interval, fn: fn, stop: make(chan struct{})}
	s.jobs[key] = j
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.run(j)
			case <-j.stop:
				return
			case <-s.stopAll:
				return
			}
		}
	}()
}

// Cancel stops the job with key. It reports whether the job existed.
func (s *Scheduler) Cancel(key JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if ok {
		delete(s.jobs, key)
		close(j.stop)
	}
	return ok
}

// Has reports whether a job with key is scheduled.
func (s *Scheduler) Has(key JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}

func (s *Scheduler) run(j *job) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Scheduled job panicked", zap.String("job", string(j.key)), zap.Any("panic", r))
		}
	}()
	j.fn()
}

// Stop cancels every job and waits for them to return. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopAll)
	s.jobs = make(map[JobKey]*job)
	s.mu.Unlock()
	s.wg.Wait()
}
