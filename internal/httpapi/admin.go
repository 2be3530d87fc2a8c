package httpapi

import (
	"net/http"

	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/gin-gonic/gin"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

type sentRequest struct {
	TxHash string `json:"tx_hash"`
}

type userUpdateRequest struct {
	Status string `json:"status"`
	Role   string `json:"role"`
}

func (s *Server) handleApproveTransaction(c *gin.Context) {
	result, err := s.ledger.ApproveDeposit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (s *Server) handleRejectTransaction(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}

	tx, err := s.ledger.RejectTransaction(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tx})
}

func (s *Server) handleMarkSent(c *gin.Context) {
	var req sentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
			return
		}
	}

	result, err := s.ledger.MarkWithdrawalSent(c.Request.Context(), c.Param("id"), req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (s *Server) handleCompleteTransaction(c *gin.Context) {
	tx, err := s.ledger.CompleteWithdrawal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tx})
}

func (s *Server) handleCreatePlan(c *gin.Context) {
	var plan models.Plan
	if err := c.ShouldBindJSON(&plan); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}

	created, err := s.invest.CreatePlan(c.Request.Context(), &plan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": created})
}

func (s *Server) handleUpdatePlan(c *gin.Context) {
	var patch store.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}

	plan, err := s.invest.SavePlan(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": plan})
}

func (s *Server) handleCloseSubscription(c *gin.Context) {
	subscription, err := s.invest.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": subscription})
}

func (s *Server) handleRunAccrual(c *gin.Context) {
	summary, err := s.invest.RunDailyAccrual(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

// handleUpdateUser changes a user's status or role.
func (s *Server) handleUpdateUser(c *gin.Context) {
	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}
	if req.Status == "" && req.Role == "" {
		writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: status or role")
		return
	}

	patch := store.Record{}
	if req.Status != "" {
		patch["status"] = req.Status
	}
	if req.Role != "" {
		patch["role"] = req.Role
	}

	record, err := s.docs.Update(c.Request.Context(), "users", c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	delete(record, "password_hash")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}
