package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"kaiwa/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// MessagesWS handles GET /ws/messages. Protocol (JSON frames, server to
// client only):
//
//	<- {type: "insert", message: {...}}   per newly stored row
//	<- {type: "reset"}                    subscription fell behind; re-seed
//
// Clients seed via GET /api/messages and then merge inserts by
// (created_at, id), dropping ids they already hold.
func MessagesWS(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Subscribe before the handshake completes: once the client sees the
		// upgrade it may immediately issue its seed read, and every row after
		// that read must reach this subscription.
		sub := st.SubscribeInserts(c.Query("room_id"))
		defer sub.Close()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(1 << 20) // 1MB
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		// Reader goroutine: the client never sends data frames, but reading
		// is what surfaces close frames and keeps pong handling alive.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case m, ok := <-sub.C():
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if !ok {
					// Evicted as a slow consumer; tell the client to re-seed.
					_ = conn.WriteJSON(gin.H{"type": "reset"})
					return
				}
				if err := conn.WriteJSON(gin.H{"type": "insert", "message": m}); err != nil {
					log.Printf("[ws] write error: %v", err)
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
