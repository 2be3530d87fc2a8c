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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"invest-platform-go/internal/models"
)

func Load() (*models.Config, error) {
	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	githubTimeout, err := getEnvDuration("GITHUB_REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	githubInitialBackoff, err := getEnvDuration("GITHUB_INITIAL_BACKOFF", 250*time.Millisecond)
	if err != nil {
		return nil, err
	}

	githubMaxBackoff, err := getEnvDuration("GITHUB_MAX_BACKOFF", 5*time.Second)
	if err != nil {
		return nil, err
	}

	ratesTTL, err := getEnvDuration("RATES_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	ratesTimeout, err := getEnvDuration("RATES_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	tokenTTL, err := getEnvDuration("AUTH_TOKEN_TTL", 72*time.Hour)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
			RateLimitPerSec: getEnvFloat("SERVER_RATE_LIMIT_PER_SEC", 10),
			RateLimitBurst:  getEnvInt("SERVER_RATE_LIMIT_BURST", 30),
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "collections.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		GitHub: models.GitHubConfig{
			APIBaseURL:     getEnvString("GITHUB_API_BASE_URL", "https://api.github.com"),
			Owner:          getEnvString("GITHUB_OWNER", ""),
			Repo:           getEnvString("GITHUB_REPO", ""),
			Branch:         getEnvString("GITHUB_BRANCH", "main"),
			Token:          getEnvString("GITHUB_TOKEN", ""),
			DataDir:        getEnvString("GITHUB_DATA_DIR", "data"),
			RequestTimeout: githubTimeout,
			MaxRetries:     getEnvInt("GITHUB_MAX_RETRIES", 3),
			InitialBackoff: githubInitialBackoff,
			MaxBackoff:     githubMaxBackoff,
		},
		Rates: models.RatesConfig{
			APIBaseURL:     getEnvString("RATES_API_BASE_URL", "https://rest.coinapi.io"),
			APIKey:         getEnvString("RATES_API_KEY", ""),
			QuoteCurrency:  getEnvString("RATES_QUOTE_CURRENCY", "EUR"),
			CacheTTL:       ratesTTL,
			RequestTimeout: ratesTimeout,
			FallbackFile:   getEnvString("RATES_FALLBACK_FILE", "rates.yaml"),
			AssetsFile:     getEnvString("ASSETS_FILE", "assets.yaml"),
		},
		Accrual: models.AccrualConfig{
			CronSpec: getEnvString("ACCRUAL_CRON_SPEC", "5 0 * * *"),
			Enabled:  getEnvBool("ACCRUAL_ENABLED", true),
		},
		Auth: models.AuthConfig{
			JWTSecret: getEnvString("AUTH_JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
