package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"zombieRushServer/config"
	"zombieRushServer/engine"
	"zombieRushServer/game"
	"zombieRushServer/state"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// LanesChannel carries every engine event plus the subscribe snapshot.
const LanesChannel = "lanes"

// Game is the part of the engine the socket clients drive.
type Game interface {
	Start() error
	Stop() error
	SwitchMode(mode game.Mode) error
	SetBetAmount(amount decimal.Decimal) error
	ClearHistory()
	PlaceBet(lane int, amount decimal.Decimal) (state.Settlement, error)
	CashOut(lane int) (state.Settlement, error)
	Act(lane int) (engine.EventType, state.Settlement, error)
	Snapshot() engine.Snapshot
}

type outbound struct {
	channel string
	data    []byte
}

// Hub fans engine events out to subscribed clients and routes client
// commands to the game. Register it with engine.Subscribe and run Run.
type Hub struct {
	game     Game
	upgrader websocket.Upgrader

	clients      map[*Client]bool
	clientsMutex sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}

	clientIDCounter int64
}

func NewHub(g Game) *Hub {
	return &Hub{
		game: g,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.WSReadBufferSize,
			WriteBufferSize: config.WSWriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, config.WSBroadcastBuffer),
		done:       make(chan struct{}),
	}
}

// EventMessage is the broadcast envelope.
type EventMessage struct {
	Type engine.EventType `json:"type"`
	Data engine.Event     `json:"data"`
}

// OnEvent queues ev for every lanes subscriber. It never blocks the engine.
func (h *Hub) OnEvent(ev engine.Event) {
	data, err := json.Marshal(EventMessage{Type: ev.Type, Data: ev})
	if err != nil {
		log.Printf("❌ Failed to marshal %s event: %v", ev.Type, err)
		return
	}
	select {
	case h.broadcast <- outbound{channel: LanesChannel, data: data}:
	default:
		log.Printf("⚠️  Broadcast buffer full, dropping %s event", ev.Type)
	}
}

// Run is the hub's event loop. It closes every client when ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	log.Println("🚀 WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.clientsMutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.clientsMutex.Unlock()
			log.Println("👋 WebSocket hub stopped")
			return nil

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.clientsMutex.Unlock()
			log.Printf("✅ Client registered: %s (Total: %d)", client.ID, total)

		case client := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			total := len(h.clients)
			h.clientsMutex.Unlock()
			log.Printf("👋 Client unregistered: %s (Total: %d)", client.ID, total)

		case msg := <-h.broadcast:
			h.broadcastToSubscribers(msg)
		}
	}
}

func (h *Hub) broadcastToSubscribers(msg outbound) {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	for client := range h.clients {
		if !client.Subscribed(msg.channel) {
			continue
		}
		select {
		case client.Send <- msg.data:
		default:
			log.Printf("⚠️  Client %s send buffer full, skipping message", client.ID)
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and starts the client's pumps.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	log.Println("📥 WebSocket connection from:", r.RemoteAddr)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("❌ WebSocket upgrade failed:", err)
		return
	}

	client := &Client{
		ID:            h.nextClientID(),
		hub:           h,
		conn:          conn,
		subscriptions: make(map[string]bool),
		Send:          make(chan []byte, config.WSSendBufferSize),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) nextClientID() string {
	id := atomic.AddInt64(&h.clientIDCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().Unix(), id)
}
