package main

import (
	"go-incentive/internal/app"
	"go-incentive/internal/config"
	"go-incentive/internal/shared/apperror"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	if err := app.RunScheduler(cfg); err != nil {
		logger.Fatal("run scheduler failed", zap.Error(err))
	}
}
