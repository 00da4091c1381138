package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/milkbites/milkbites-backend/pkg/logger"
)

// CartCountMessage is pushed to every open session of a cart owner
// whenever their cart changes, so all tabs keep the badge in sync.
type CartCountMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// UserKey and GuestKey build the owner key a session registers under.
func UserKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func GuestKey(token string) string {
	return "guest:" + token
}

// Client is one open WebSocket session for a cart owner.
type Client struct {
	Hub      *Hub
	Conn     *Conn
	OwnerKey string
	Send     chan []byte
}

// Hub tracks open sessions per cart owner. An owner may hold several
// sessions at once (multiple tabs or devices).
type Hub struct {
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *ownerMessage

	mu sync.RWMutex
}

type ownerMessage struct {
	OwnerKey string
	Message  []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *ownerMessage, 1024),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.OwnerKey] = append(h.clients[client.OwnerKey], client)
			sessions := len(h.clients[client.OwnerKey])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"owner":          client.OwnerKey,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clientList, ok := h.clients[client.OwnerKey]; ok {
				newList := make([]*Client, 0, len(clientList))
				for _, c := range clientList {
					if c != client {
						newList = append(newList, c)
					}
				}
				if len(newList) == 0 {
					delete(h.clients, client.OwnerKey)
				} else {
					h.clients[client.OwnerKey] = newList
				}
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"owner": client.OwnerKey,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			if clientList, ok := h.clients[message.OwnerKey]; ok {
				for _, client := range clientList {
					select {
					case client.Send <- message.Message:
					default:
						// Send buffer stuck, drop the session
						go h.Unregister(client)
						logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
							"owner": message.OwnerKey,
						})
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NotifyCartCount pushes the current cart badge count to every session
// of the owner. Messages are droppable: the next cart mutation resends
// the authoritative count.
func (h *Hub) NotifyCartCount(ownerKey string, count int) {
	data, err := json.Marshal(CartCountMessage{Type: "cart_count", Count: count})
	if err != nil {
		logger.Error("Failed to marshal cart count message", err, nil)
		return
	}

	select {
	case h.broadcast <- &ownerMessage{OwnerKey: ownerKey, Message: data}:
	default:
		logger.Warn("Broadcast channel full, cart count dropped", map[string]interface{}{
			"owner": ownerKey,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsOnline reports whether the owner has at least one open session.
func (h *Hub) IsOnline(ownerKey string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[ownerKey]
	return ok
}
