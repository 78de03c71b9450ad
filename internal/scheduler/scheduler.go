package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules (with a seconds field). With a
// Redis client set, each run takes a lock so one replica runs a job at a time.
type Scheduler struct {
	cron    *cron.Cron
	rdb     *redis.Client
	lockTTL time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

func New(rdb *redis.Client, logger ...*zap.Logger) *Scheduler {
	l := zap.L().Named("scheduler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("scheduler")
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		rdb:     rdb,
		lockTTL: 10 * time.Minute,
		timeout: 5 * time.Minute,
		logger:  l,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.RunNow(ctx, job)
	})
	if err != nil {
		return err
	}

	s.logger.Info("job registered", zap.String("job", job.Name()), zap.String("schedule", schedule))
	return nil
}

// RunNow runs job once under the lock. It returns nil without running when
// another instance holds the lock.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	log := s.logger.With(zap.String("job", job.Name()))

	if s.rdb != nil {
		key := "incentive:job-lock:" + job.Name()
		acquired, err := s.rdb.SetNX(ctx, key, "1", s.lockTTL).Result()
		if err != nil {
			log.Error("acquire job lock failed", zap.Error(err))
			return err
		}
		if !acquired {
			log.Debug("job locked by another instance")
			return nil
		}
		defer s.rdb.Del(context.Background(), key)
	}

	started := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Error("job failed", zap.Error(err))
		return err
	}
	log.Debug("job completed", zap.Duration("elapsed", time.Since(started)))
	return nil
}
