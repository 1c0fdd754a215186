package rf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultCommand = "codesend"

// ErrStateUnknown is returned by IsOn before the first transmission: RF sockets cannot be read back.
var ErrStateUnknown = errors.New("rf socket state unknown until first transmission")

var safeMode bool

func SetSafeMode(enabled bool) {
	safeMode = enabled
}

// TransmitTimeout bounds one transmitter run.
const TransmitTimeout = 5 * time.Second

var transmitTimeout = TransmitTimeout

var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

var transmit = func(command string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), transmitTimeout)
	defer cancel()

	out, err := runCommand(ctx, command, args...)
	if ctx.Err() != nil {
		return fmt.Errorf("%s timed out after %s", command, transmitTimeout)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %s (output: %s)", command, err, string(out))
	}
	return nil
}

// Socket is a remote-controlled mains socket switched by sending 433 MHz codes.
type Socket struct {
	Name       string
	Command    string
	OnCode     int
	OffCode    int
	PulseWidth int // microseconds, 0 uses the transmitter default

	mu    sync.Mutex
	state *bool
}

func NewSocket(name, command string, onCode, offCode, pulseWidth int) *Socket {
	if command == "" {
		command = DefaultCommand
	}
	return &Socket{
		Name:       name,
		Command:    command,
		OnCode:     onCode,
		OffCode:    offCode,
		PulseWidth: pulseWidth,
	}
}

func (s *Socket) On() error {
	return s.send(true, s.OnCode)
}

func (s *Socket) Off() error {
	return s.send(false, s.OffCode)
}

// IsOn reports the last transmitted state.
func (s *Socket) IsOn() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return false, ErrStateUnknown
	}
	return *s.state, nil
}

func (s *Socket) send(on bool, code int) error {
	if safeMode {
		log.Warn().Str("device", s.Name).Int("code", code).Msg("Safe mode, rf code not sent")
	} else {
		args := []string{strconv.Itoa(code)}
		if s.PulseWidth > 0 {
			args = append(args, "-l", strconv.Itoa(s.PulseWidth))
		}
		if err := transmit(s.Command, args...); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = &on
	s.mu.Unlock()
	return nil
}
