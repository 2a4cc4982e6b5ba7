package wsclient

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ysalameh/paywatch/internal/events"
	"go.uber.org/zap"
)

// State of the channel. Transitions: Disconnected -> Connecting ->
// Connected -> (on loss) Disconnected.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

// Conn is the subset of *websocket.Conn the client reads from.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens one connection attempt.
type Dialer func(url string) (Conn, error)

func defaultDialer(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options tune the reconnect policy. Zero values fall back to the defaults.
type Options struct {
	// BaseDelay is the wait before the first retry; each further retry
	// doubles it. Default 1s.
	BaseDelay time.Duration
	// MaxAttempts caps consecutive failed attempts before the client stays
	// Disconnected until Activate is called again. Default 5.
	MaxAttempts int

	Dialer Dialer
	Logger *zap.Logger

	// afterFunc is swapped out by tests to observe scheduled delays.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

type envelope struct {
	Type string `json:"type"`
}

// Client maintains at most one live connection to the server's update
// endpoint. It carries no payload truth: every link-update notification just
// triggers onUpdate so the caller re-fetches authoritative state.
type Client struct {
	url      string
	onUpdate func()
	opts     Options
	log      *zap.Logger

	mu       sync.Mutex
	state    State
	failures int
	active   bool
	conn     Conn
	timer    *time.Timer
}

func New(url string, onUpdate func(), opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Dialer == nil {
		opts.Dialer = defaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.afterFunc == nil {
		opts.afterFunc = time.AfterFunc
	}
	return &Client{
		url:      url,
		onUpdate: onUpdate,
		opts:     opts,
		log:      opts.Logger,
	}
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Activate starts the channel with a single connection attempt. Calling it
// on an already active client is a no-op; calling it after the retry ceiling
// was reached re-arms the channel with a fresh counter.
func (c *Client) Activate() {
	c.mu.Lock()
	if c.active && c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.failures = 0
	c.mu.Unlock()

	go c.connect()
}

// Shutdown closes the connection and cancels any pending reconnect. No
// reconnection is scheduled afterwards.
func (c *Client) Shutdown() {
	c.mu.Lock()
	c.active = false
	c.state = StateDisconnected
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) connect() {
	c.mu.Lock()
	// Re-entrancy guard: never start a second attempt while one is running.
	if !c.active || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.opts.Dialer(c.url)

	c.mu.Lock()
	if !c.active {
		c.state = StateDisconnected
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateDisconnected
		c.log.Warn("connection attempt failed", zap.Error(err))
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.failures = 0
	c.mu.Unlock()

	c.log.Info("connected", zap.String("url", c.url))

	// The notification stream has no replay: resynchronize once on every
	// successful (re)connect to cover the gap.
	if c.onUpdate != nil {
		c.onUpdate()
	}

	go c.readLoop(conn)
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var env envelope
		if jsonErr := json.Unmarshal(msg, &env); jsonErr != nil {
			continue
		}
		if env.Type == events.TypeLinkUpdate && c.onUpdate != nil {
			c.onUpdate()
		}
	}

	c.mu.Lock()
	if c.conn != conn {
		// Superseded or shut down already.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	wasActive := c.active
	if wasActive {
		c.log.Warn("connection lost")
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	_ = conn.Close()
}

// scheduleReconnectLocked counts the loss and arms the retry timer. Caller
// holds c.mu.
func (c *Client) scheduleReconnectLocked() {
	c.failures++
	if c.failures >= c.opts.MaxAttempts {
		c.log.Error("retry ceiling reached, staying disconnected",
			zap.Int("attempts", c.failures),
		)
		return
	}

	delay := c.opts.BaseDelay << (c.failures - 1)
	c.log.Info("scheduling reconnect",
		zap.Duration("delay", delay),
		zap.Int("failed_attempts", c.failures),
	)
	c.timer = c.opts.afterFunc(delay, c.connect)
}
