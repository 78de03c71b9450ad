package app

import (
	"database/sql"

	"go-incentive/internal/config"
	"go-incentive/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BuildApp connects the infrastructure and registers every module on router.
// The returned cleanup closes the connections.
func BuildApp(router *gin.Engine, cfg config.AppConfig) (func(), error) {
	logger := zap.L().Named("app")

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
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
	if err != nil {
		closeDB(sqlDB, logger)
		return nil, err
	}
	logger.Info("redis connection established")

	if err := registerModules(router, sqlDB, gormDB, redisClient, cfg, logger); err != nil {
		closeDB(sqlDB, logger)
		_ = redisClient.Close()
		return nil, err
	}

	return func() {
		_ = redisClient.Close()
		closeDB(sqlDB, logger)
	}, nil
}

func closeDB(db *sql.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("close database failed", zap.Error(err))
	}
}
