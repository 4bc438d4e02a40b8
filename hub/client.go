package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 32
)

// Client adalah satu koneksi websocket milik user yang sudah terautentikasi.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	role   string
	room   uint // dijaga oleh hub.mutex
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

func (h *Hub) NewClient(conn *websocket.Conn, userID uint, role string) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		role:   role,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		utils.ErrorLogger.WithField("user_id", c.userID).Warn("send buffer full, dropping frame")
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	c.conn.Close()
}

// Serve registers c and pumps frames until the connection drops.
func (h *Hub) Serve(c *Client) {
	h.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := utils.InfoLogger.WithField("user_id", c.userID)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("client disconnected")
			} else {
				log.WithError(err).Debug("read error")
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.WithError(err).Warn("invalid frame")
			continue
		}

		switch env.Event {
		case models.EventJoinUserRoom:
			room, err := parseRoomID(env.Data)
			if err != nil {
				log.WithError(err).Warn("join rejected")
				continue
			}
			if err := c.hub.Join(c, room); err != nil {
				log.WithFields(logrus.Fields{"room": room}).WithError(err).Warn("join rejected")
				continue
			}
			log.WithField("room", room).Debug("joined user room")
		default:
			log.WithField("event", env.Event).Debug("ignoring client event")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				utils.ErrorLogger.WithField("user_id", c.userID).WithError(err).Debug("write error")
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
