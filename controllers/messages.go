package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"kaiwa/middleware"
	"kaiwa/models"
	"kaiwa/pkg/chat"
	"kaiwa/pkg/store"
)

// SubmitMessage handles POST /api/messages: runs one pipeline exchange and
// returns the persisted user message plus, when available, the AI reply.
func SubmitMessage(pipe *chat.Pipeline, guard *middleware.DuplicateGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Content string `json:"content"`
			RoomID  string `json:"room_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Content) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}
		if !guard.Allow(middleware.ClientIP(c), body.Content) {
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate message, try again later"})
			return
		}

		ex, err := pipe.Submit(c.Request.Context(), body.Content, body.RoomID)
		if err != nil {
			if errors.Is(err, chat.ErrEmptyMessage) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
				return
			}
			var storeErr *chat.StoreError
			if errors.As(err, &storeErr) && ex != nil {
				// User message is durable; only the assistant write failed.
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":        "failed to save assistant reply",
					"details":      storeErr.Op,
					"user_message": ex.User,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
			return
		}

		resp := gin.H{"user_message": ex.User}
		if ex.Assistant != nil {
			resp["ai_response"] = ex.Assistant
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// ListMessages handles GET /api/messages: the ordered seed read for clients.
func ListMessages(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		msgs, err := st.ReadOrdered(c.Request.Context(), limit, c.Query("room_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
			return
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}
