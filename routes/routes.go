package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kaiwa/middleware"
	"kaiwa/pkg/chat"
	"kaiwa/pkg/store"

	messagesRoutes "kaiwa/routes/messages"
	websocketRoutes "kaiwa/routes/websocket"
)

func RegisterRoutes(r *gin.Engine, pipe *chat.Pipeline, st *store.Store, limiter *middleware.RateLimiter, guard *middleware.DuplicateGuard) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "Go chat backend running"})
	})

	messagesRoutes.Register(r, pipe, st, limiter, guard)
	websocketRoutes.Register(r, st)
}
