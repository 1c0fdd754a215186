package communicator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/aquarium-controller/internal/model"
)

const (
	DefaultBackoff      = 3 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Conn is the subset of *websocket.Conn the communicator uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler receives every inbound command, synchronously on the receive goroutine.
type Handler func(model.Command)

type Options struct {
	URL          string
	Dialer       Dialer
	Backoff      time.Duration
	WriteTimeout time.Duration
}

// Communicator owns the one session to the server. It reconnects forever and delivers
// outbound telemetry at most once.
type Communicator struct {
	url          string
	dialer       Dialer
	backoff      time.Duration
	writeTimeout time.Duration
	handler      Handler

	state atomic.Int32

	// guards conn and serializes writes; gorilla/websocket allows one concurrent writer
	mu      sync.Mutex
	conn    Conn
	session string

	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options, handler Handler) *Communicator {
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if handler == nil {
		handler = func(model.Command) {}
	}
	return &Communicator{
		url:          opts.URL,
		dialer:       opts.Dialer,
		backoff:      opts.Backoff,
		writeTimeout: opts.WriteTimeout,
		handler:      handler,
		sleep:        sleepCtx,
	}
}

func (c *Communicator) State() State {
	return State(c.state.Load())
}

// setState is only called from the Run goroutine. It logs before publishing so that
// observers of the new state also observe the log write.
func (c *Communicator) setState(s State) {
	prev := c.State()
	if prev != s {
		log.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("Communicator state change")
	}
	c.state.Store(int32(s))
}

// Run keeps a session open until ctx is cancelled. The first failure after a connected
// session retries immediately; consecutive failures wait the backoff delay.
func (c *Communicator) Run(ctx context.Context) error {
	log.Info().Str("url", c.url).Msg("Starting communicator")

	reconnecting := false
	for {
		if err := ctx.Err(); err != nil {
			c.setState(Disconnected)
			return err
		}

		connected, err := c.runSession(ctx)
		if ctx.Err() != nil {
			c.setState(Disconnected)
			return ctx.Err()
		}
		if connected {
			reconnecting = false
		}

		log.Error().Err(err).Str("url", c.url).Bool("reconnecting", reconnecting).Msg("Server session lost")

		if reconnecting {
			log.Info().Dur("backoff", c.backoff).Msg("Waiting before next connection attempt")
			if err := c.sleep(ctx, c.backoff); err != nil {
				c.setState(Disconnected)
				return err
			}
		}
		reconnecting = true
	}
}

func (c *Communicator) runSession(ctx context.Context) (bool, error) {
	c.setState(Connecting)

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		c.setState(Disconnected)
		return false, fmt.Errorf("connect %s: %w", c.url, err)
	}

	session := uuid.NewString()
	c.mu.Lock()
	c.conn = conn
	c.session = session
	c.mu.Unlock()

	log.Info().Str("url", c.url).Str("session", session).Msg("Connected to server")
	c.setState(Connected)

	// closing the connection is the only way to unblock a pending read
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	err = c.receive(conn, session)
	close(stop)
	c.teardown(conn)
	return true, err
}

func (c *Communicator) receive(conn Conn, session string) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		c.dispatch(data, session)
	}
}

func (c *Communicator) dispatch(data []byte, session string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("session", session).Msg("Command handler panicked")
		}
	}()

	var cmd model.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Warn().Err(err).Str("session", session).Msg("Ignoring malformed server message")
		return
	}
	if len(cmd.Values) == 0 {
		log.Debug().Str("session", session).Msg("Ignoring server message without values")
		return
	}

	log.Info().Str("session", session).Interface("values", cmd.Values).Msg("Command received")
	c.handler(cmd)
}

func (c *Communicator) teardown(conn Conn) {
	c.setState(Disconnected)

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.session = ""
	}
	c.mu.Unlock()

	if err := conn.Close(); err != nil {
		log.Debug().Err(err).Msg("Error closing server session")
	}
}

// Send transmits the snapshot if a session is open. It never blocks waiting for a
// connection and never retries; failures are logged and the snapshot is dropped.
func (c *Communicator) Send(snapshot model.TelemetrySnapshot) {
	if c.State() != Connected {
		log.Error().Str("state", c.State().String()).Msg("Not connected to server, dropping telemetry")
		return
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode telemetry")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		log.Error().Msg("Server session closed, dropping telemetry")
		return
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		log.Warn().Err(err).Str("session", c.session).Msg("Failed to set write deadline")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Error().Err(err).Str("session", c.session).Msg("Failed to send telemetry, dropping it")
		return
	}

	log.Debug().Str("session", c.session).Int("values", len(snapshot.Values)).Msg("Telemetry sent")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
