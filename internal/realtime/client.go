package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/session"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxFrameSize   = 65536
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Client is a single WebSocket connection. Its connection id doubles as the
// participant id across the registry, broadcasts, and the students query.
type Client struct {
	ID        string
	hub       *Hub
	coord     *session.Coordinator
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
	closeOnce sync.Once
}

// ServeWs upgrades the request and runs the client's read loop.
func ServeWs(hub *Hub, coord *session.Coordinator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			hub:    hub,
			coord:  coord,
			conn:   conn,
			send:   make(chan WSMessage, sendBufferSize),
			logger: logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.coord.Leave(c.ID)
		c.close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(msg)
	}
}

// handle dispatches one inbound event. Errors go back only to this
// connection; a bad command must never take the server down, so a panic in a
// handler closes just this client.
func (c *Client) handle(msg WSMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panic", zap.String("event", msg.Event), zap.Any("panic", r))
			c.close()
		}
	}()

	switch msg.Event {
	case "teacher-join":
		var p struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.sendError("error", "invalid payload")
			return
		}
		if err := c.coord.JoinTeacher(c.ID, p.Name); err != nil {
			c.sendError("error", err.Error())
		}

	case "student-join":
		var p struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.sendError("error", "invalid payload")
			return
		}
		if err := c.coord.JoinStudent(c.ID, p.Name); err != nil {
			c.sendError("error", err.Error())
		}

	case "create-poll":
		var p struct {
			Question string   `json:"question"`
			Options  []string `json:"options"`
			MaxTime  int      `json:"maxTime"`
		}
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.sendError("poll-error", "invalid payload")
			return
		}
		if err := c.coord.CreatePoll(c.ID, p.Question, p.Options, p.MaxTime); err != nil {
			c.sendError("poll-error", err.Error())
		}

	case "submit-answer":
		var p struct {
			Option string `json:"option"`
		}
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.sendError("error", "invalid payload")
			return
		}
		if err := c.coord.SubmitAnswer(c.ID, p.Option); err != nil {
			c.sendError("error", err.Error())
		}

	case "end-poll":
		c.coord.EndActive()

	case "kick-student":
		// The payload is either a bare id string or {"studentId": "..."}.
		var target string
		if err := json.Unmarshal(msg.Data, &target); err != nil {
			var p struct {
				StudentID string `json:"studentId"`
			}
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				c.sendError("error", "invalid payload")
				return
			}
			target = p.StudentID
		}
		if err := c.coord.Kick(target); err != nil {
			c.sendError("error", err.Error())
		}

	case "send-message":
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.sendError("error", "invalid payload")
			return
		}
		if err := c.coord.SendMessage(c.ID, p.Message); err != nil {
			c.sendError("error", err.Error())
		}

	default:
		// ignore
	}
}

func (c *Client) sendError(event, message string) {
	c.hub.SendTo(c.ID, event, map[string]any{"message": message})
}

// enqueue queues a message without blocking; a client whose buffer is full
// misses the message rather than stalling the fan-out.
func (c *Client) enqueue(msg WSMessage) {
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("send buffer full, dropping message",
			zap.String("conn_id", c.ID), zap.String("event", msg.Event))
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
