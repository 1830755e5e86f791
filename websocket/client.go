package websocket

import (
	"context"
	"encoding/json"
	"eventops/models"
	"eventops/utils"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrade switches an HTTP request to a websocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Client is one observer connection. It holds a global subscription and,
// when an event was requested, an event subscription.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	identity     models.Identity
	eventID      string
	connectionID string
	connectedAt  time.Time
	ipAddress    string
	userAgent    string

	send          chan models.WSMessage
	subscriptions []*Subscription
	rateLimiter   *utils.RateLimiter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, hub *Hub, r *http.Request, identity models.Identity, eventID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:         conn,
		hub:          hub,
		identity:     identity,
		eventID:      eventID,
		connectionID: utils.GenerateUUID(),
		connectedAt:  time.Now(),
		ipAddress:    getClientIP(r),
		userAgent:    r.UserAgent(),
		send:         make(chan models.WSMessage, sendBufferSize),
		rateLimiter:  utils.NewRateLimiter(30, time.Minute),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SnapshotFunc reads the current system and event state. Either may be nil.
type SnapshotFunc func() (system *models.WSMessage, event *models.WSMessage)

// Subscribe registers the client with the hub, then reads the current state
// and queues it behind the subscriptions so no update in between is lost.
func (c *Client) Subscribe(snapshot SnapshotFunc) {
	global := c.hub.SubscribeSystemStatus(c.deliver)
	c.subscriptions = append(c.subscriptions, global)

	var event *Subscription
	if c.eventID != "" {
		event = c.hub.SubscribeEmergencyState(c.eventID, c.deliver)
		c.subscriptions = append(c.subscriptions, event)
	}

	if snapshot != nil {
		systemState, eventState := snapshot()
		if systemState != nil {
			global.Send(*systemState)
		}
		if event != nil && eventState != nil {
			event.Send(*eventState)
		}
	}

	logrus.WithFields(logrus.Fields{
		"connectionId": c.connectionID,
		"userId":       c.identity.UserID,
		"eventId":      c.eventID,
		"ip":           c.ipAddress,
		"userAgent":    c.userAgent,
	}).Info("Realtime client connected")
}

// deliver runs on the subscription goroutine; blocking here only delays
// this client's own queue.
func (c *Client) deliver(message models.WSMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	select {
	case c.send <- message:
	case <-c.ctx.Done():
	}
}

func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("connectionId", c.connectionID).WithError(err).Warn("Websocket read error")
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.sendError(models.WSErrorInvalidMessage, "Too many messages")
			continue
		}

		c.handleMessage(data)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				logrus.WithField("connectionId", c.connectionID).WithError(err).Warn("Websocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Observers are read-only; the only inbound message is an application ping.
func (c *Client) handleMessage(data []byte) {
	var request struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &request); err != nil {
		c.sendError(models.WSErrorInvalidMessage, "Invalid message format")
		return
	}

	switch request.Type {
	case models.WSTypePing:
		c.enqueue(models.WSMessage{
			Type:      models.WSTypePong,
			Timestamp: time.Now().UTC(),
		})
	default:
		c.sendError(models.WSErrorInvalidMessage, "Unknown message type")
	}
}

func (c *Client) sendError(code, message string) {
	c.enqueue(models.WSMessage{
		Type: models.WSTypeError,
		Data: models.WSError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}

// enqueue writes a direct reply, dropping it if the buffer is full.
func (c *Client) enqueue(message models.WSMessage) {
	select {
	case c.send <- message:
	default:
	}
}

// Close ends every subscription and the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		for _, sub := range c.subscriptions {
			sub.Unsubscribe()
		}
		c.cancel()
		c.conn.Close()

		logrus.WithFields(logrus.Fields{
			"connectionId": c.connectionID,
			"userId":       c.identity.UserID,
			"duration":     utils.FormatDuration(time.Since(c.connectedAt)),
		}).Info("Realtime client disconnected")
	})
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
