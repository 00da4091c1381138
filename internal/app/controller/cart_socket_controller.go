package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/milkbites/milkbites-backend/internal/errors"
	"github.com/milkbites/milkbites-backend/internal/middleware"
	"github.com/milkbites/milkbites-backend/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"https://milkbites.id":  true,
			"http://localhost:5173": true, // dev
			"http://localhost:3000": true, // dev
		}
		return allowedOrigins[origin]
	},
}

// CartSocketController upgrades cart badge subscriptions. Authenticated
// sessions pass the JWT as a query token, guests pass their cart token.
type CartSocketController struct {
	hub *ws.Hub
}

func NewCartSocketController(hub *ws.Hub) *CartSocketController {
	return &CartSocketController{hub: hub}
}

// Subscribe opens a WebSocket pushing cart count updates
// GET /ws/cart
func (ctrl *CartSocketController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var ownerKey string
	if userID, ok := middleware.GetUserID(c); ok {
		ownerKey = ws.UserKey(userID)
	} else if token, ok := middleware.GetGuestToken(c); ok && token != "" {
		ownerKey = ws.GuestKey(token)
	} else {
		apperrors.BadRequest(c, apperrors.CartTokenRequired, "Authentication or a guest cart token is required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	// Another tab or device may already be subscribed for this owner
	additionalSession := ctrl.hub.IsOnline(ownerKey)

	client := &ws.Client{
		Hub:      ctrl.hub,
		Conn:     &ws.Conn{Conn: conn},
		OwnerKey: ownerKey,
		Send:     make(chan []byte, 256),
	}

	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Cart WebSocket connection established", map[string]interface{}{
		"owner":              ownerKey,
		"additional_session": additionalSession,
	})
}
