package actuator

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Switch is a physical on/off capability.
type Switch interface {
	On() error
	Off() error
	IsOn() (bool, error)
}

// State is a point-in-time copy of a controller. Nil means unknown.
type State struct {
	Name     string
	IsOn     *bool
	LastAuto *bool
}

// Controller drives one device from two channels: scheduled automatic decisions and
// remote manual commands. Automatic decisions are compared against the last automatic
// decision, not the current state, so a manual override holds until the automatic
// decision flips.
type Controller struct {
	Name string
	sw   Switch

	mu       sync.Mutex
	isOn     *bool
	lastAuto *bool

	// serializes physical switching; never held together with mu across a pulse
	pulseMu sync.Mutex
}

func NewController(name string, sw Switch) *Controller {
	c := &Controller{Name: name, sw: sw}

	on, err := sw.IsOn()
	if err != nil {
		log.Warn().Err(err).Str("device", name).Msg("Could not read initial device state")
		return c
	}
	c.isOn = &on

	log.Info().Str("device", name).Bool("on", on).Msg("Device registered")
	return c
}

// ApplyAuto switches the device if desired differs from the previous automatic decision.
// It reports whether a physical switch was issued.
func (c *Controller) ApplyAuto(desired bool) bool {
	c.mu.Lock()
	if c.lastAuto != nil && *c.lastAuto == desired {
		c.mu.Unlock()
		return false
	}
	c.lastAuto = boolPtr(desired)
	c.isOn = boolPtr(desired)
	c.mu.Unlock()

	log.Info().Str("device", c.Name).Bool("on", desired).Msg("Automatic switch")
	c.actuate()
	return true
}

// ApplyManual always switches the device and leaves the last automatic decision untouched.
func (c *Controller) ApplyManual(desired bool) {
	c.mu.Lock()
	c.isOn = boolPtr(desired)
	c.mu.Unlock()

	log.Info().Str("device", c.Name).Bool("on", desired).Msg("Manual switch")
	c.actuate()
}

func (c *Controller) IsOn() (on bool, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOn == nil {
		return false, false
	}
	return *c.isOn, true
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Name:     c.Name,
		IsOn:     copyBool(c.isOn),
		LastAuto: copyBool(c.lastAuto),
	}
}

// actuate sends the latest state, so concurrent callers converge on the last writer.
func (c *Controller) actuate() {
	c.pulseMu.Lock()
	defer c.pulseMu.Unlock()

	c.mu.Lock()
	target := c.isOn != nil && *c.isOn
	c.mu.Unlock()

	var err error
	if target {
		err = c.sw.On()
	} else {
		err = c.sw.Off()
	}
	if err != nil {
		log.Error().Err(err).Str("device", c.Name).Bool("on", target).Msg("Physical switch failed")
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	return boolPtr(*b)
}
