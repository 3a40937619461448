package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"zombieRushServer/config"
	"zombieRushServer/game"
	"zombieRushServer/state"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Client is one socket connection and its channel subscriptions.
type Client struct {
	ID   string
	Send chan []byte

	hub  *Hub
	conn *websocket.Conn

	subscriptions map[string]bool
	closed        bool
	mu            sync.RWMutex
}

// ClientMessage is a command from the browser.
type ClientMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Reply answers a single command.
type Reply struct {
	Type    string      `json:"type"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (c *Client) Subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[channel]
}

// writePump sends queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes commands until the connection drops.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.ID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Printf("❌ Failed to parse message from client %s: %v", c.ID, err)
			c.sendError("", fmt.Errorf("invalid message: %w", err))
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage routes one command to the game and answers the sender.
func (c *Client) handleMessage(msg ClientMessage) {
	g := c.hub.game

	switch msg.Type {
	case "subscribe":
		channel, _ := msg.Data["channel"].(string)
		if channel != LanesChannel {
			c.sendError(msg.Type, fmt.Errorf("unknown channel %q", channel))
			return
		}
		c.mu.Lock()
		c.subscriptions[channel] = true
		c.mu.Unlock()
		log.Printf("📡 Client %s subscribed to: %s", c.ID, channel)

		c.send(map[string]interface{}{
			"type": "snapshot",
			"data": g.Snapshot(),
		})

	case "unsubscribe":
		channel, _ := msg.Data["channel"].(string)
		c.mu.Lock()
		delete(c.subscriptions, channel)
		c.mu.Unlock()
		log.Printf("📴 Client %s unsubscribed from: %s", c.ID, channel)

	case "place_bet":
		lane, err := laneFrom(msg.Data)
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		amount, err := amountFrom(msg.Data, false)
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		s, err := g.PlaceBet(lane, amount)
		c.reply(msg.Type, s, err)

	case "cash_out":
		lane, err := laneFrom(msg.Data)
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		s, err := g.CashOut(lane)
		c.reply(msg.Type, s, err)

	case "act":
		lane, err := laneFrom(msg.Data)
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		action, s, err := g.Act(lane)
		c.reply(msg.Type, map[string]interface{}{"action": action, "settlement": s}, err)

	case "start_game":
		c.reply(msg.Type, nil, g.Start())

	case "stop_game":
		c.reply(msg.Type, nil, g.Stop())

	case "switch_mode":
		name, _ := msg.Data["mode"].(string)
		mode, err := game.ParseMode(name)
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		c.reply(msg.Type, map[string]interface{}{"mode": mode}, g.SwitchMode(mode))

	case "set_bet_amount":
		amount, err := amountFrom(msg.Data, true)
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		c.reply(msg.Type, map[string]interface{}{"amount": amount}, g.SetBetAmount(amount))

	case "clear_history":
		g.ClearHistory()
		c.reply(msg.Type, nil, nil)

	default:
		log.Printf("⚠️  Unknown message type from client %s: %s", c.ID, msg.Type)
		c.sendError(msg.Type, fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (c *Client) reply(request string, data interface{}, err error) {
	if err != nil {
		c.sendError(request, err)
		return
	}
	c.send(Reply{Type: request + "_result", Success: true, Data: data})
}

func (c *Client) sendError(request string, err error) {
	typ := "error"
	if request != "" {
		typ = request + "_result"
	}
	c.send(Reply{Type: typ, Success: false, Error: err.Error()})
}

func (c *Client) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ Failed to marshal reply for client %s: %v", c.ID, err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("⚠️  Client %s send buffer full, skipping reply", c.ID)
	}
}

// close shuts Send once. Replies racing the hub are dropped after it.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

var errMissingLane = errors.New("lane is required")

func laneFrom(data map[string]interface{}) (int, error) {
	v, ok := data["lane"]
	if !ok {
		return 0, errMissingLane
	}
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid lane %v", v)
	}
	return int(f), nil
}

// amountFrom reads "amount" as a decimal string or a JSON number. A missing
// amount is zero unless required.
func amountFrom(data map[string]interface{}, required bool) (decimal.Decimal, error) {
	v, ok := data["amount"]
	if !ok || v == nil {
		if required {
			return decimal.Zero, fmt.Errorf("%w: amount is required", state.ErrInvalidAmount)
		}
		return decimal.Zero, nil
	}

	var amount decimal.Decimal
	switch a := v.(type) {
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(a))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", state.ErrInvalidAmount, a)
		}
		amount = parsed
	case float64:
		amount = decimal.NewFromFloat(a)
	default:
		return decimal.Zero, fmt.Errorf("%w: %v", state.ErrInvalidAmount, v)
	}
	if amount.IsNegative() || (required && amount.IsZero()) {
		return decimal.Zero, fmt.Errorf("%w: %s", state.ErrInvalidAmount, amount)
	}
	return amount, nil
}
