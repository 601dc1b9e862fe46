// Package scheduler runs background maintenance jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/horizon/internal/utils"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	slow time.Duration // runs longer than this log a warning

	mu   sync.Mutex
	runs map[string]*RunStatus
}

// RunStatus is the outcome of a job's latest run
type RunStatus struct {
	Job       string        `json:"job"`
	Schedule  string        `json:"schedule"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	Duration  time.Duration `json:"duration"`
	LastError string        `json:"last_error,omitempty"`
	Runs      int           `json:"runs"`
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DiscardLogger))),
		log:  log.With().Str("component", "scheduler").Logger(),
		slow: 5 * time.Minute,
		runs: make(map[string]*RunStatus),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 3 * * *"        - Daily at 03:00
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	if _, exists := s.runs[job.Name()]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %s already registered", job.Name())
	}
	s.runs[job.Name()] = &RunStatus{Job: job.Name(), Schedule: schedule}
	s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() {
		_ = s.run(job)
	})
	if err != nil {
		s.mu.Lock()
		delete(s.runs, job.Name())
		s.mu.Unlock()
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	start := time.Now()
	timer := utils.NewTimer(job.Name(), s.slow, s.log)
	err := job.Run()
	elapsed := timer.Stop(map[string]interface{}{"job": job.Name(), "failed": err != nil})

	s.mu.Lock()
	status, ok := s.runs[job.Name()]
	if !ok {
		status = &RunStatus{Job: job.Name()}
		s.runs[job.Name()] = status
	}
	status.LastRun = start
	status.Duration = elapsed
	status.Runs++
	status.LastError = ""
	if err != nil {
		status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Dur("duration", elapsed).
			Msg("Job failed")
	}
	return err
}

// Status returns a snapshot of every registered job's latest run
func (s *Scheduler) Status() []RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RunStatus, 0, len(s.runs))
	for _, st := range s.runs {
		out = append(out, *st)
	}
	return out
}
