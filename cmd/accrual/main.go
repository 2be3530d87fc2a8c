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
	"fmt"

	"invest-platform-go/internal/common"
	"invest-platform-go/internal/config"

	"go.uber.org/zap"
)

// One-shot daily accrual run, for external schedulers and manual reruns.
// Safe to run more than once per day: already-accrued subscriptions are
// skipped.
func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	summary, err := services.Invest.RunDailyAccrual(ctx)
	if err != nil {
		zap.L().Fatal("Accrual run failed", zap.Error(err))
	}

	common.PrintHeader("DAILY ACCRUAL", common.DefaultWidth)
	fmt.Printf("Processed: %d\n", summary.Processed)
	fmt.Printf("Skipped:   %d (already accrued today)\n", summary.Skipped)
	fmt.Printf("Failed:    %d\n", summary.Failed)
	common.PrintFooter(fmt.Sprintf("TOTAL CREDITED: %s EUR", summary.TotalCredits.String()), common.DefaultWidth)
}
