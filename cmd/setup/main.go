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
	"flag"
	"fmt"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/common"
	"invest-platform-go/internal/config"
	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func seedAdmin(ctx context.Context, docs *collections.Service, email, password string) error {
	records, err := docs.List(ctx, "users", collections.Filter{})
	if err != nil {
		return err
	}
	for _, record := range records {
		if record["email"] == email {
			zap.L().Info("Admin user already exists", zap.String("email", email))
			return nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = docs.Create(ctx, "users", store.Record{
		"email":         email,
		"password_hash": string(hash),
		"role":          "admin",
		"status":        "active",
		"full_name":     "Platform Admin",
	})
	if err != nil {
		return err
	}
	zap.L().Info("Created admin user", zap.String("email", email))
	return nil
}

func seedSettings(ctx context.Context, docs *collections.Service) error {
	if _, err := docs.Get(ctx, "settings", "app-settings"); err == nil {
		zap.L().Info("Settings already seeded")
		return nil
	}

	_, err := docs.Create(ctx, "settings", store.Record{
		"id":               "app-settings",
		"exchange_fee_pct": decimal.RequireFromString("0.5"),
		"withdrawal_fees": map[string]any{
			"BTC":  decimal.RequireFromString("0.0002"),
			"ETH":  decimal.RequireFromString("0.002"),
			"USDT": decimal.RequireFromString("2"),
			"USDC": decimal.RequireFromString("2"),
		},
		"deposit_addresses": map[string]any{},
	})
	if err != nil {
		return err
	}
	zap.L().Info("Seeded default settings")
	return nil
}

func seedPlans(ctx context.Context, docs *collections.Service) error {
	existing, err := docs.List(ctx, "plans", collections.Filter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		zap.L().Info("Plans already seeded", zap.Int("count", len(existing)))
		return nil
	}

	starters := []store.Record{
		{
			"name":          "Starter",
			"roi_min":       decimal.NewFromInt(4),
			"roi_max":       decimal.NewFromInt(6),
			"min_eur":       decimal.NewFromInt(100),
			"max_eur":       decimal.NewFromInt(5000),
			"duration_days": 30,
			"ref_asset":     "USDT",
			"status":        "active",
		},
		{
			"name":          "Growth",
			"roi_min":       decimal.NewFromInt(8),
			"roi_max":       decimal.NewFromInt(12),
			"min_eur":       decimal.NewFromInt(1000),
			"max_eur":       decimal.NewFromInt(50000),
			"duration_days": 90,
			"ref_asset":     "BTC",
			"status":        "active",
		},
	}

	for _, plan := range starters {
		if _, err := docs.Create(ctx, "plans", plan); err != nil {
			return err
		}
		zap.L().Info("Seeded plan", zap.Any("name", plan["name"]))
	}
	return nil
}

func main() {
	adminEmail := flag.String("admin-email", "admin@localhost", "Email for the seeded admin account")
	adminPassword := flag.String("admin-password", "", "Password for the seeded admin account (required)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *adminPassword == "" {
		zap.L().Fatal("--admin-password is required")
	}

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("PLATFORM SETUP", common.DefaultWidth)

	if err := seedAdmin(ctx, services.Collections, *adminEmail, *adminPassword); err != nil {
		zap.L().Fatal("Failed to seed admin user", zap.Error(err))
	}
	if err := seedSettings(ctx, services.Collections); err != nil {
		zap.L().Fatal("Failed to seed settings", zap.Error(err))
	}
	if err := seedPlans(ctx, services.Collections); err != nil {
		zap.L().Fatal("Failed to seed plans", zap.Error(err))
	}

	common.PrintFooter("Setup complete", common.DefaultWidth)
}
