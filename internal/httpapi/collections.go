package httpapi

import (
	"net/http"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/store"

	"github.com/gin-gonic/gin"
)

// requireCollection rejects names outside the known set before any store
// round trip happens.
func requireCollection(c *gin.Context) (string, bool) {
	name := c.Param("collection")
	if name == "" {
		writeError(c, http.StatusBadRequest, codeMissingCollection, "collection name is required")
		return "", false
	}
	if !store.KnownCollection(name) {
		writeError(c, http.StatusBadRequest, codeInvalidCollection, "unknown collection "+name)
		return "", false
	}
	return name, true
}

// userScopedCollections carry a user_id and are readable by their owner.
// Everything else on the generic surface is admin-only for clients.
var userScopedCollections = map[string]bool{
	"wallets":         true,
	"transactions":    true,
	"subscriptions":   true,
	"notifications":   true,
	"support_tickets": true,
}

func (s *Server) handleCollectionGet(c *gin.Context) {
	collection, ok := requireCollection(c)
	if !ok {
		return
	}

	claims := claimsFrom(c)
	filter := collections.Filter{UserId: c.Query("user_id")}
	if claims.Role != "admin" {
		if !userScopedCollections[collection] && collection != "plans" && collection != "settings" {
			writeError(c, http.StatusForbidden, codePermissionDenied, "admin role required for "+collection)
			return
		}
		if userScopedCollections[collection] {
			// Clients only ever see their own records.
			filter.UserId = claims.UserId
		}
	}

	if id := c.Query("id"); id != "" {
		record, err := s.docs.Get(c.Request.Context(), collection, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if claims.Role != "admin" && userScopedCollections[collection] {
			if owner, _ := record["user_id"].(string); owner != claims.UserId {
				writeError(c, http.StatusForbidden, codePermissionDenied, "cannot access another user's data")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
		return
	}

	records, err := s.docs.List(c.Request.Context(), collection, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": records, "count": len(records)})
}

func (s *Server) handleCollectionPost(c *gin.Context) {
	collection, ok := requireCollection(c)
	if !ok {
		return
	}

	claims := claimsFrom(c)
	if claims.Role != "admin" && collection != "support_tickets" {
		writeError(c, http.StatusForbidden, codePermissionDenied, "admin role required for "+collection)
		return
	}

	var payload store.Record
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}
	if claims.Role != "admin" {
		payload["user_id"] = claims.UserId
	}

	record, err := s.docs.Create(c.Request.Context(), collection, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": record})
}

func (s *Server) handleCollectionPut(c *gin.Context) {
	collection, ok := requireCollection(c)
	if !ok {
		return
	}
	if claimsFrom(c).Role != "admin" {
		writeError(c, http.StatusForbidden, codePermissionDenied, "admin role required for "+collection)
		return
	}

	var payload store.Record
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidType, "request body must be a JSON object")
		return
	}

	id, _ := payload["id"].(string)
	if id == "" {
		writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: id")
		return
	}

	record, err := s.docs.Update(c.Request.Context(), collection, id, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

func (s *Server) handleCollectionDelete(c *gin.Context) {
	collection, ok := requireCollection(c)
	if !ok {
		return
	}
	if claimsFrom(c).Role != "admin" {
		writeError(c, http.StatusForbidden, codePermissionDenied, "admin role required for "+collection)
		return
	}

	id := c.Query("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, codeMissingFields, "missing required fields: id")
		return
	}

	record, err := s.docs.Delete(c.Request.Context(), collection, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}
