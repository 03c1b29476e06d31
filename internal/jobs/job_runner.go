package jobs

import (
	"time"

	"library-circulation/internal/config"
	"library-circulation/internal/logger"
	"library-circulation/internal/repository"
	"library-circulation/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	reminders repository.ReminderRepository
	policies  repository.FinePolicyRepository
	notifier  service.Notifier
	config    *config.Config
	now       func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(reminders repository.ReminderRepository, policies repository.FinePolicyRepository, notifier service.Notifier, cfg *config.Config) *JobRunner {
	return &JobRunner{
		reminders: reminders,
		policies:  policies,
		notifier:  notifier,
		config:    cfg,
		now:       time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	log := logger.WithService("jobs")
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	start := time.Now()
	log.Info("Starting job", "job", jobName)
	jobFunc()
	log.Info("Job completed", "job", jobName, "duration", time.Since(start))
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.SendOverdueReminders()
}
