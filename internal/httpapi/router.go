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

package httpapi

import (
	"net/http"

	"invest-platform-go/internal/auth"
	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/invest"
	"invest-platform-go/internal/ledger"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/rates"

	"github.com/gin-gonic/gin"
)

// Server wires the HTTP surface to the service layer.
type Server struct {
	docs    *collections.Service
	rates   *rates.Service
	ledger  *ledger.Service
	invest  *invest.Service
	auth    *auth.Service
	limiter *ipLimiter
}

func NewServer(cfg models.ServerConfig, docs *collections.Service, rateService *rates.Service,
	ledgerService *ledger.Service, investService *invest.Service, authService *auth.Service) *Server {
	perSecond := cfg.RateLimitPerSec
	if perSecond <= 0 {
		perSecond = 20
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 40
	}
	return &Server{
		docs:    docs,
		rates:   rateService,
		ledger:  ledgerService,
		invest:  investService,
		auth:    authService,
		limiter: newIPLimiter(perSecond, burst),
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.limiter.middleware())

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)
		api.GET("/rates", s.handleRates)

		authed := api.Group("", requireAuth(s.auth))
		{
			authed.GET("/db/:collection", s.handleCollectionGet)
			authed.POST("/db/:collection", s.handleCollectionPost)
			authed.PUT("/db/:collection", s.handleCollectionPut)
			authed.DELETE("/db/:collection", s.handleCollectionDelete)

			authed.GET("/wallets", s.handleWallets)
			authed.POST("/transactions/deposit", s.handleDeposit)
			authed.POST("/transactions/withdraw", s.handleWithdraw)
			authed.POST("/transactions/exchange", s.handleExchange)
			authed.POST("/subscriptions", s.handlePurchase)
			authed.POST("/notifications/:id/read", s.handleMarkNotificationRead)

			admin := authed.Group("/admin", requireAdmin())
			{
				admin.POST("/transactions/:id/approve", s.handleApproveTransaction)
				admin.POST("/transactions/:id/reject", s.handleRejectTransaction)
				admin.POST("/transactions/:id/sent", s.handleMarkSent)
				admin.POST("/transactions/:id/complete", s.handleCompleteTransaction)
				admin.POST("/plans", s.handleCreatePlan)
				admin.PUT("/plans/:id", s.handleUpdatePlan)
				admin.POST("/subscriptions/:id/close", s.handleCloseSubscription)
				admin.POST("/accrual/run", s.handleRunAccrual)
				admin.PUT("/users/:id", s.handleUpdateUser)
			}
		}
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.docs.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
