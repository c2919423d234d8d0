package ws

import (
	"net/http"
	"time"

	"souqi/config"
	"souqi/internal/auth"
	"souqi/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHub pushes wallet and order updates to the users they concern. It is
// the EventSink the financial services publish into.
type EventsHub struct {
	*Hub
}

func NewEventsHub() *EventsHub {
	return &EventsHub{Hub: NewHub()}
}

func (h *EventsHub) OrderEvent(userID uint, order *models.EscrowOrder) {
	h.BroadcastToUser(userID, map[string]interface{}{
		"type":  "order",
		"order": order,
	})
}

func (h *EventsHub) WalletEvent(userID uint, balanceHalalas int64) {
	h.BroadcastToUser(userID, map[string]interface{}{
		"type":            "wallet",
		"balance_halalas": balanceHalalas,
	})
}

// UpgradeEventsWS authenticates via ?token= and streams events for that user.
func UpgradeEventsWS(cfg *config.JWTConfig, hub *EventsHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := &Client{
			UserID: claims.UserID,
			Send:   make(chan []byte, 256),
		}
		hub.Register(client)
		defer client.Close()

		go writePump(client, conn)
		readPump(conn)
	}
}

func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
