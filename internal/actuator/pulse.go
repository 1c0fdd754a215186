package actuator

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPulseAttempts = 3
	DefaultPulseDelay    = 100 * time.Millisecond
)

var sleep = time.Sleep

type pulsed struct {
	Switch
	attempts int
	delay    time.Duration
}

// Pulsed repeats every On/Off on sw attempts times with delay in between. Receivers of
// unacknowledged links (433 MHz sockets) can miss a single transmission. The whole
// sequence blocks the caller.
func Pulsed(sw Switch, attempts int, delay time.Duration) Switch {
	if attempts < 1 {
		attempts = 1
	}
	return &pulsed{Switch: sw, attempts: attempts, delay: delay}
}

func (p *pulsed) On() error {
	return p.repeat("on", p.Switch.On)
}

func (p *pulsed) Off() error {
	return p.repeat("off", p.Switch.Off)
}

// repeat only fails when every attempt failed.
func (p *pulsed) repeat(action string, fn func() error) error {
	var errs []error
	for i := 0; i < p.attempts; i++ {
		if i > 0 {
			sleep(p.delay)
		}
		if err := fn(); err != nil {
			log.Debug().Err(err).Str("action", action).Int("attempt", i+1).Msg("Switch attempt failed")
			errs = append(errs, err)
		}
	}
	if len(errs) == p.attempts {
		return fmt.Errorf("all %d %s attempts failed: %w", p.attempts, action, errors.Join(errs...))
	}
	return nil
}
