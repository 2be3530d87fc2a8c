/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invest-platform-go/internal/common"
	"invest-platform-go/internal/config"
	"invest-platform-go/internal/httpapi"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting invest platform server", zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	apiServer := httpapi.NewServer(cfg.Server, services.Collections, services.Rates,
		services.Ledger, services.Invest, services.Auth)

	// The daily accrual runs inside the server process on a cron schedule.
	// The cmd/accrual binary covers one-shot and external schedulers.
	var scheduler *cron.Cron
	if cfg.Accrual.Enabled {
		scheduler = cron.New(cron.WithLocation(time.UTC))
		_, err := scheduler.AddFunc(cfg.Accrual.CronSpec, func() {
			summary, err := services.Invest.RunDailyAccrual(ctx)
			if err != nil {
				zap.L().Error("Scheduled accrual failed", zap.Error(err))
				return
			}
			zap.L().Info("Scheduled accrual finished",
				zap.Int("processed", summary.Processed),
				zap.Int("skipped", summary.Skipped))
		})
		if err != nil {
			zap.L().Fatal("Invalid accrual cron spec",
				zap.String("spec", cfg.Accrual.CronSpec), zap.Error(err))
		}
		scheduler.Start()
		zap.L().Info("Accrual scheduler started", zap.String("spec", cfg.Accrual.CronSpec))
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: apiServer.Router(),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
		return
	}
	zap.L().Info("Server stopped gracefully")
}
