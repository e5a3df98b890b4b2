package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/models"
)

type scheduleConcluder interface {
	ConcludeExpired(ctx context.Context, asOf models.Date) (int64, error)
}

// ConcludeJobConfig tunes the conclusion job.
type ConcludeJobConfig struct {
	Spec     string
	Location *time.Location
	Timeout  time.Duration
}

// ConcludeJob periodically moves schedules whose bounded end date has passed
// to CONCLUDED, dropping them from conflict detection.
type ConcludeJob struct {
	repo        scheduleConcluder
	invalidates []CacheInvalidator
	cfg         ConcludeJobConfig
	logger      *zap.Logger
	now         func() time.Time
	cron        *cron.Cron
}

// NewConcludeJob constructs a ConcludeJob.
func NewConcludeJob(repo scheduleConcluder, cfg ConcludeJobConfig, logger *zap.Logger, invalidates ...CacheInvalidator) *ConcludeJob {
	if cfg.Spec == "" {
		cfg.Spec = "15 0 * * *"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConcludeJob{repo: repo, invalidates: invalidates, cfg: cfg, logger: logger, now: time.Now}
}

// Run concludes every schedule that ended before today in the configured location.
func (j *ConcludeJob) Run(ctx context.Context) (int64, error) {
	today := models.DateOf(j.now().In(j.cfg.Location))
	count, err := j.repo.ConcludeExpired(ctx, today)
	if err != nil {
		j.logger.Error("conclude expired schedules failed", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		for _, inv := range j.invalidates {
			if inv != nil {
				inv.Invalidate(ctx)
			}
		}
	}
	j.logger.Info("concluded expired schedules", zap.Int64("count", count), zap.String("as_of", today.String()))
	return count, nil
}

// Start registers the job on a cron scheduler and starts it.
func (j *ConcludeJob) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(j.cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(j.cfg.Spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()
		_, _ = j.Run(runCtx)
	}); err != nil {
		return err
	}
	j.cron = c
	c.Start()
	j.logger.Info("conclude job scheduled", zap.String("spec", j.cfg.Spec), zap.String("location", j.cfg.Location.String()))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (j *ConcludeJob) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}
