package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go-incentive/internal/bootstrap"
	"go-incentive/internal/config"
	"go-incentive/internal/events"
	"go-incentive/internal/messaging/kafka/consumer"
	"go-incentive/internal/shared/connection"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const consumerGroup = "go-incentive-lifecycle-audit"

// RunConsumer records calculation and approval lifecycle events in the
// audit log.
func RunConsumer(cfg config.AppConfig) error {
	logger := zap.L().Named("app.consumer")

	if cfg.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	redisClient, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	notifier := consumer.NewLifecycleNotifier(bootstrap.NewStdoutAuditLogger(logger), redisClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for name, topic := range map[string]string{
		"calculation_lifecycle": events.CalculationLifecycleTopic,
		"approval_lifecycle":    events.ApprovalLifecycleTopic,
	} {
		reader := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        []string{cfg.KafkaBroker},
			Topic:          topic,
			GroupID:        consumerGroup,
			CommitInterval: 0,
			StartOffset:    kafkago.FirstOffset,
		})
		defer reader.Close()

		wg.Add(1)
		go func(name string, reader *kafkago.Reader) {
			defer wg.Done()
			consumer.Consume(ctx, reader, name, notifier.Handle, logger)
		}(name, reader)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()
	wg.Wait()

	return nil
}
