package app

import (
	"os"
	"os/signal"
	"syscall"

	"go-incentive/internal/config"
	"go-incentive/internal/messaging/kafka"
	"go-incentive/internal/scheduler"
	"go-incentive/internal/shared/connection"

	"go.uber.org/zap"
)

// RunScheduler runs the approval escalation and expiration sweeps and the
// outbox retention purge.
func RunScheduler(cfg config.AppConfig) error {
	logger := zap.L().Named("app.scheduler")

	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.Database.Host,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.Port,
		cfg.Database.SSLMode,
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	svc := buildServices(sqlDB, gormDB, redisClient, cfg, logger)

	s := scheduler.New(redisClient, logger)
	if err := s.AddJob(cfg.EscalationSchedule, scheduler.NewEscalationJob(svc.approvals, logger)); err != nil {
		return err
	}
	if err := s.AddJob(cfg.ExpirationSchedule, scheduler.NewExpirationJob(svc.approvals, logger)); err != nil {
		return err
	}
	retention := scheduler.NewOutboxRetentionJob(kafka.NewOutboxRepository(sqlDB), cfg.OutboxRetention, logger)
	if err := s.AddJob(cfg.OutboxPurgeSchedule, retention); err != nil {
		return err
	}
	s.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("scheduler shutting down")
	s.Stop()

	return nil
}
