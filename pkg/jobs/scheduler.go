package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maxmaster/portal-server-go/pkg/metrics"
)

// DefaultTimeout bounds a single job execution.
const DefaultTimeout = 5 * time.Minute

// Job represents a background job.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// Scheduler runs jobs on fixed intervals until stopped.
type Scheduler struct {
	jobs    map[string]*ScheduledJob
	mu      sync.RWMutex
	logger  *slog.Logger
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ScheduledJob wraps a job with its schedule.
type ScheduledJob struct {
	Job        Job
	Interval   time.Duration
	Timeout    time.Duration
	RunOnStart bool
}

// Option configures a ScheduledJob.
type Option func(*ScheduledJob)

// WithTimeout overrides DefaultTimeout for one job.
func WithTimeout(d time.Duration) Option {
	return func(s *ScheduledJob) { s.Timeout = d }
}

// RunOnStart executes the job once as soon as the scheduler starts.
func RunOnStart() Option {
	return func(s *ScheduledJob) { s.RunOnStart = true }
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]*ScheduledJob),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job. Non-positive intervals are ignored.
func (s *Scheduler) AddJob(job Job, interval time.Duration, opts ...Option) {
	if interval <= 0 {
		s.logger.Warn("job disabled", "name", job.Name())
		return
	}

	scheduled := &ScheduledJob{Job: job, Interval: interval, Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(scheduled)
	}

	s.mu.Lock()
	s.jobs[job.Name()] = scheduled
	s.mu.Unlock()
}

// Start launches one goroutine per job.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	jobs := make([]*ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	for _, scheduled := range jobs {
		s.wg.Add(1)
		go s.runJob(scheduled)
	}

	s.logger.Info("job scheduler started", "jobs", len(jobs))
}

func (s *Scheduler) runJob(scheduled *ScheduledJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(scheduled.Interval)
	defer ticker.Stop()

	s.logger.Info("starting job", "name", scheduled.Job.Name(), "interval", scheduled.Interval)

	if scheduled.RunOnStart {
		s.execute(scheduled)
	}

	for {
		select {
		case <-ticker.C:
			s.execute(scheduled)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) execute(scheduled *ScheduledJob) {
	_ = s.run(s.ctx, scheduled)
}

// run executes one job with its timeout, recovering panics into errors and
// recording the outcome.
func (s *Scheduler) run(parent context.Context, scheduled *ScheduledJob) (err error) {
	job := scheduled.Job
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
			metrics.RecordJobRun(job.Name(), "panic", time.Since(start))
			s.logger.Error("job panic", "name", job.Name(), "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(parent, scheduled.Timeout)
	defer cancel()

	s.logger.Debug("executing job", "name", job.Name())

	if err := job.Execute(ctx); err != nil {
		metrics.RecordJobRun(job.Name(), "error", time.Since(start))
		s.logger.Error("job execution failed", "name", job.Name(), "error", err, "duration", time.Since(start))
		return err
	}

	metrics.RecordJobRun(job.Name(), "success", time.Since(start))
	s.logger.Debug("job completed", "name", job.Name(), "duration", time.Since(start))
	return nil
}

// Stop cancels running jobs and waits for their goroutines to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("job scheduler stopped")
}

// RunOnce executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunOnce(ctx context.Context, jobName string) error {
	s.mu.RLock()
	scheduled, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", jobName)
	}

	return s.run(ctx, scheduled)
}
