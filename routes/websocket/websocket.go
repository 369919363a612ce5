package websocket

import (
	"github.com/gin-gonic/gin"

	"kaiwa/controllers"
	"kaiwa/pkg/store"
)

func Register(r *gin.Engine, st *store.Store) {
	r.GET("/ws/messages", controllers.MessagesWS(st))
}
