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
	"invest-platform-go/internal/models"

	"go.uber.org/zap"
)

type walletStats struct {
	totalUsers       int
	totalWallets     int
	usersWithWallets int
}

func printWallet(wallet models.Wallet, isLast bool) {
	fmt.Printf("%s %-6s: %20s (updated: %s)\n",
		common.BoxPrefix(isLast),
		wallet.Crypto,
		wallet.Balance.String(),
		wallet.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printUserWallets(user models.User, wallets []models.Wallet) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.FullName, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	for i, wallet := range wallets {
		printWallet(wallet, i == len(wallets)-1)
	}
}

func main() {
	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	logger.Info("Starting wallet report")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	records, err := services.Collections.List(ctx, "users", collections.Filter{})
	if err != nil {
		logger.Fatal("Failed to list users", zap.Error(err))
	}

	common.PrintHeader("USER WALLET REPORT", common.DefaultWidth)

	stats := walletStats{}
	for _, record := range records {
		var user models.User
		if err := models.FromRecord(record, &user); err != nil {
			logger.Error("Skipping undecodable user", zap.Error(err))
			continue
		}
		if *emailFlag != "" && user.Email != *emailFlag {
			continue
		}
		stats.totalUsers++

		wallets, err := services.Ledger.GetUserWallets(ctx, user.Id)
		if err != nil {
			logger.Error("Failed to list wallets",
				zap.String("user_id", user.Id),
				zap.Error(err))
			continue
		}
		if len(wallets) == 0 {
			continue
		}

		printUserWallets(user, wallets)
		stats.usersWithWallets++
		stats.totalWallets += len(wallets)
	}

	summary := fmt.Sprintf("SUMMARY: %d users with wallets (%d wallets across %d users queried)",
		stats.usersWithWallets, stats.totalWallets, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Wallet report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_wallets", stats.usersWithWallets),
		zap.Int("total_wallets", stats.totalWallets))
}
