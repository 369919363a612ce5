package messages

import (
	"github.com/gin-gonic/gin"

	"kaiwa/controllers"
	"kaiwa/middleware"
	"kaiwa/pkg/chat"
	"kaiwa/pkg/store"
)

// Register registers the message API routes.
func Register(r *gin.Engine, pipe *chat.Pipeline, st *store.Store, limiter *middleware.RateLimiter, guard *middleware.DuplicateGuard) {
	// Basic rate limiting on the submit endpoint only
	r.POST("/api/messages", limiter.Handler(), controllers.SubmitMessage(pipe, guard))
	r.GET("/api/messages", controllers.ListMessages(st))
}
