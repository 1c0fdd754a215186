package thermostat

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/aquarium-controller/internal/actuator"
)

type Config struct {
	OnThreshold  float64 `json:"on_threshold" yaml:"on_threshold"`
	OffThreshold float64 `json:"off_threshold" yaml:"off_threshold"`
}

func (c Config) Validate() error {
	if c.OnThreshold <= c.OffThreshold {
		return fmt.Errorf("fan on_threshold (%.2f) must be greater than off_threshold (%.2f)", c.OnThreshold, c.OffThreshold)
	}
	return nil
}

// Fan is a two-threshold cooling fan thermostat.
type Fan struct {
	cfg  Config
	ctrl *actuator.Controller
	on   bool
}

// NewFan starts from whatever the fan actuator reported when it was registered.
func NewFan(cfg Config, ctrl *actuator.Controller) (*Fan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	on, _ := ctrl.IsOn()
	return &Fan{cfg: cfg, ctrl: ctrl, on: on}, nil
}

// Evaluate feeds the latest water temperature and returns the fan decision.
// A nil temperature switches the fan off: without a reading we would rather have a
// warm tank than a fan running blind.
func (f *Fan) Evaluate(temp *float64) bool {
	next := f.on
	switch {
	case temp == nil:
		log.Error().Msg("Water temperature unknown, switching fan off")
		next = false
	case !f.on && *temp >= f.cfg.OnThreshold:
		next = true
	case f.on && *temp <= f.cfg.OffThreshold:
		next = false
	}

	if next == f.on {
		return f.on
	}

	ev := log.Info().Bool("fan", next)
	if temp != nil {
		ev = ev.Float64("temp", *temp)
	}
	ev.Msg("Fan thermostat transition")

	f.on = next
	f.ctrl.ApplyAuto(next)
	return f.on
}

func (f *Fan) On() bool {
	return f.on
}

func (f *Fan) State() actuator.State {
	return f.ctrl.State()
}
