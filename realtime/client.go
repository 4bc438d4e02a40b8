// Package realtime keeps one websocket connection to the floor server open
// for the logged-in waiter, joins the waiter's user room and fans pushed
// events out to subscribed handlers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

const (
	writeWait = 10 * time.Second
	// server pings every 25s
	readWait = 70 * time.Second

	DefaultMinBackoff = 500 * time.Millisecond
	DefaultMaxBackoff = 30 * time.Second
)

var (
	ErrClosed         = errors.New("realtime client closed")
	ErrInvalidSession = errors.New("session has no user or token")
)

type Client struct {
	serverURL  string
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration

	// lifecycle serialises Connect and Disconnect
	lifecycle sync.Mutex

	mu       sync.Mutex
	handlers map[string][]handlerEntry
	nextID   uint64
	session  models.Session
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool

	// connects counts successful dials, including reconnects
	connects int
}

type Option func(*Client)

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithBackoff sets the reconnect delay bounds. The delay doubles after each
// failed dial up to max and resets after a successful one.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = min
		c.maxBackoff = max
	}
}

// New creates a client for the floor server at serverURL (http or https).
// Nothing is dialled until Connect.
func New(serverURL string, opts ...Option) *Client {
	c := &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		handlers:   make(map[string][]handlerEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxBackoff < c.minBackoff {
		c.maxBackoff = c.minBackoff
	}
	return c
}

// Connect starts keeping a connection open for session. Calling it again with
// the same session does nothing. A different session (re-login) drops the
// current connection and reconnects with the new token, joining the new
// user's room. Dialing happens in the background; transport failures are
// retried with backoff and never returned here.
func (c *Client) Connect(session models.Session) error {
	if session.IsZero() || session.Token == "" {
		return ErrInvalidSession
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.done != nil && c.session.UserID == session.UserID && c.session.Token == session.Token {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.session = session
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(ctx, session, done)
	return nil
}

// Disconnect drops the connection and forgets the session. Handlers stay
// registered and the client can Connect again.
func (c *Client) Disconnect() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stop()
	c.mu.Lock()
	c.session = models.Session{}
	c.mu.Unlock()
}

// Close disconnects for good. Later Connect calls return ErrClosed.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Disconnect()
}

func (c *Client) stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Connected reports whether a websocket is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Session() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Connects returns how many times a connection was established.
func (c *Client) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *Client) run(ctx context.Context, session models.Session, done chan struct{}) {
	defer close(done)

	log := utils.InfoLogger.WithFields(logrus.Fields{"component": "realtime", "user_id": session.UserID})
	backoff := c.minBackoff

	wait := func() bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
		return true
	}

	for {
		conn, err := c.dial(ctx, session)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).WithField("retry_in", backoff).Warn("realtime dial failed")
			if !wait() {
				return
			}
			continue
		}

		if err := join(conn, session.UserID); err != nil {
			log.WithError(err).Warn("join failed")
			conn.Close()
			if !wait() {
				return
			}
			continue
		}
		backoff = c.minBackoff

		c.mu.Lock()
		c.conn = conn
		c.connects++
		c.mu.Unlock()
		log.Debug("realtime connected")

		c.readLoop(ctx, conn, log)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		log.Info("realtime connection lost, reconnecting")
	}
}

func (c *Client) dial(ctx context.Context, session models.Session) (*websocket.Conn, error) {
	target, err := websocketURL(c.serverURL, session.Token)
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// join is re-sent on every connect; the server moves the connection into the
// user's room and leaves any previous one.
func join(conn *websocket.Conn, userID uint) error {
	frame, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  uint   `json:"data"`
	}{Event: models.EventJoinUserRoom, Data: userID})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, log *logrus.Entry) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Debug("read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.WithError(err).Warn("invalid frame")
			continue
		}
		if ctx.Err() != nil {
			return
		}
		c.dispatch(env.Event, env.Data)
	}
}

func websocketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL + "/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
