package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Handler is the work run on each tick
type Handler func(ctx context.Context) error

// JobStatus is a snapshot of one registered job
type JobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
	Runs      int
}

type jobEntry struct {
	name      string
	schedule  string
	handler   Handler
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
	lastError string
	runs      int
}

// Service runs registered jobs on cron schedules.
// Jobs never overlap: a tick that fires while another job is running is skipped.
type Service struct {
	cron     *cron.Cron
	logger   arbor.ILogger
	jobMu    sync.Mutex // Protects jobs map
	globalMu sync.Mutex // Prevents concurrent job execution
	jobs     map[string]*jobEntry
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterJob adds a job under a standard 5-field cron schedule
func (s *Service) RegisterJob(name, schedule string, handler Handler) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{name: name, schedule: schedule, handler: handler}
	cronID, err := s.cron.AddFunc(schedule, func() { s.executeJob(name) })
	if err != nil {
		return fmt.Errorf("invalid schedule for job %s: %w", name, err)
	}
	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Registered scheduled job")
	return nil
}

// Start begins firing registered jobs
func (s *Service) Start() {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop halts scheduling, cancels the job context and waits for cron-fired runs to return
func (s *Service) Stop() {
	s.jobMu.Lock()
	wasRunning := s.running
	s.running = false
	s.jobMu.Unlock()

	s.cancel()
	if wasRunning {
		<-s.cron.Stop().Done()
	}
	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the cron loop is active
func (s *Service) IsRunning() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.running
}

// TriggerJob runs a job immediately on the caller's goroutine
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.executeJob(name)
	return nil
}

// GetJobStatus returns the status of one job
func (s *Service) GetJobStatus(name string) (*JobStatus, error) {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		return nil, fmt.Errorf("job %s not found", name)
	}
	status := &JobStatus{
		Name:      entry.name,
		Schedule:  entry.schedule,
		LastRun:   entry.lastRun,
		IsRunning: entry.isRunning,
		LastError: entry.lastError,
		Runs:      entry.runs,
	}
	cronID := entry.cronID
	s.jobMu.Unlock()

	if next := s.cron.Entry(cronID).Next; !next.IsZero() {
		status.NextRun = &next
	}
	return status, nil
}

// executeJob wraps job execution with overlap protection, panic recovery, and status tracking
func (s *Service) executeJob(name string) {
	if !s.globalMu.TryLock() {
		s.logger.Warn().Str("job_name", name).Msg("Previous run still in progress, skipping tick")
		return
	}
	defer s.globalMu.Unlock()

	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Job not found")
		return
	}
	entry.isRunning = true
	handler := entry.handler
	s.jobMu.Unlock()

	start := time.Now()
	s.logger.Info().Str("job_name", name).Msg("Job execution started")

	err := s.runHandler(handler)

	completed := time.Now()
	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &completed
	entry.runs++
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Job execution failed")
		return
	}
	s.logger.Info().
		Str("job_name", name).
		Dur("duration", time.Since(start)).
		Msg("Job execution completed")
}

func (s *Service) runHandler(handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(s.ctx)
}
