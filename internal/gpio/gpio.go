package gpio

import (
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/aquarium-controller/internal/pinctrl"
)

var safeMode bool

func SetSafeMode(enabled bool) {
	safeMode = enabled
}

var (
	readLevel   = pinctrl.ReadLevel
	driveOutput = pinctrl.DriveOutput
)

// Pin is a relay board GPIO output.
type Pin struct {
	Number     int
	ActiveHigh bool
}

// Relay switches a device wired to a relay board channel.
type Relay struct {
	Name string
	Pin  Pin
}

func NewRelay(name string, pin Pin) *Relay {
	return &Relay{Name: name, Pin: pin}
}

func (r *Relay) On() error {
	return r.set(true)
}

func (r *Relay) Off() error {
	return r.set(false)
}

// IsOn reads the pin level and maps it through the relay polarity.
func (r *Relay) IsOn() (bool, error) {
	level, err := readLevel(r.Pin.Number)
	if err != nil {
		return false, err
	}
	return level == r.Pin.ActiveHigh, nil
}

func (r *Relay) set(active bool) error {
	if safeMode {
		log.Warn().Str("device", r.Name).Int("pin", r.Pin.Number).Bool("on", active).Msg("Safe mode, relay not switched")
		return nil
	}
	// active-low boards energize the relay on a low level
	return driveOutput(r.Pin.Number, active == r.Pin.ActiveHigh)
}
