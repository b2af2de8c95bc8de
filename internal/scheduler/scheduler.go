package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single scheduled verification run
const jobTimeout = 10 * time.Minute

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler runs verification jobs periodically. A tick that fires while the
// previous run is still going is skipped, so at most one run is active.
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
	ctx      context.Context
}

// New creates a new scheduler with the given timezone. Jobs inherit ctx, so
// cancelling it aborts any run in progress.
func New(ctx context.Context, timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		ctx:      ctx,
	}, nil
}

// AddJob adds a job with a cron schedule
// schedule format: "*/30 * * * *" (every 30 minutes)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(name, job); err != nil {
			log.Printf("[scheduler] Job %s failed: %v", name, err)
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	log.Printf("[scheduler] Added job: %s (schedule: %s)", name, schedule)

	return nil
}

// AddDailyJob adds a job at a specific time of day
// timeStr format: "07:00" or "18:00"
func (s *Scheduler) AddDailyJob(name, timeStr string, job Job) error {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format %s: %w", timeStr, err)
	}

	schedule := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	return s.AddJob(name, schedule, job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		log.Printf("[scheduler] Removed job: %s", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	log.Println("[scheduler] Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	log.Println("[scheduler] Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job outside the schedule
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	log.Printf("[scheduler] Starting job: %s", name)
	start := time.Now()

	if err := job(ctx); err != nil {
		return err
	}

	log.Printf("[scheduler] Job %s completed in %v", name, time.Since(start))
	return nil
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
