package app

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thatsimonsguy/aquarium-controller/db"
	"github.com/thatsimonsguy/aquarium-controller/internal/actuator"
	"github.com/thatsimonsguy/aquarium-controller/internal/communicator"
	"github.com/thatsimonsguy/aquarium-controller/internal/config"
	"github.com/thatsimonsguy/aquarium-controller/internal/controlloop"
	"github.com/thatsimonsguy/aquarium-controller/internal/gpio"
	"github.com/thatsimonsguy/aquarium-controller/internal/model"
	"github.com/thatsimonsguy/aquarium-controller/internal/notifications"
	"github.com/thatsimonsguy/aquarium-controller/internal/rf"
	"github.com/thatsimonsguy/aquarium-controller/internal/sensor"
	"github.com/thatsimonsguy/aquarium-controller/internal/thermostat"
)

// System holds everything the controller runs with. It is built once at startup and
// handed to both tasks.
type System struct {
	Config       config.Config
	Communicator *communicator.Communicator
	Loop         *controlloop.Loop
	Fan          *thermostat.Fan

	// remotely switchable actuators by name; the fan is thermostat controlled and not listed
	Controllers map[string]*actuator.Controller

	DB *sql.DB
}

var newSwitch = func(a config.Actuator, rfCfg config.RF) actuator.Switch {
	switch a.Driver {
	case config.DriverRF:
		socket := rf.NewSocket(a.Name, rfCfg.Command, a.OnCode, a.OffCode, a.PulseWidth)
		return actuator.Pulsed(socket, rfCfg.PulseAttempts, rfCfg.PulseDelay())
	default:
		return gpio.NewRelay(a.Name, gpio.Pin{Number: *a.Pin, ActiveHigh: a.ActiveHigh})
	}
}

var newReader = func(s config.Sensor) sensor.Reader {
	if s.Bus != "" {
		return sensor.NewW1Thermometer(sensor.DefaultW1Base, s.Bus)
	}
	return &sensor.CommandQuery{
		Command: s.Command,
		Args:    s.Args,
		Timeout: time.Duration(s.TimeoutSeconds) * time.Second,
	}
}

// Build wires a validated configuration into a runnable system.
func Build(cfg config.Config) (*System, error) {
	s := &System{
		Config:      cfg,
		Controllers: make(map[string]*actuator.Controller, len(cfg.Actuators)),
	}

	fanCtrl := actuator.NewController(cfg.Fan.Actuator.Name, newSwitch(cfg.Fan.Actuator, cfg.RF))
	fan, err := thermostat.NewFan(cfg.Fan.Config, fanCtrl)
	if err != nil {
		return nil, err
	}
	s.Fan = fan

	scheduled := make([]controlloop.Scheduled, 0, len(cfg.Actuators))
	for _, a := range cfg.Actuators {
		ctrl := actuator.NewController(a.Name, newSwitch(a, cfg.RF))
		s.Controllers[a.Name] = ctrl
		scheduled = append(scheduled, controlloop.Scheduled{Controller: ctrl, Rule: a.Rule()})
	}

	s.Communicator = communicator.New(communicator.Options{
		URL: cfg.ServerWebsocket,
		Dialer: communicator.WebsocketDialer{
			PingInterval: time.Duration(cfg.PingIntervalSeconds) * time.Second,
		},
	}, s.HandleCommand)

	if cfg.StateDB != "" {
		s.DB = openStateDB(cfg)
	}

	opts := controlloop.Options{
		ControllerID:     cfg.ControllerID,
		Period:           cfg.TickPeriod(),
		AggregationCount: cfg.AggregationCount,
		Water:            sensor.NewSampler(model.MetricWaterTemperature, newReader(cfg.WaterSensor)),
		Fan:              fan,
		Actuators:        scheduled,
		Sender:           s.Communicator,
		DB:               s.DB,
	}
	if notifications.Enabled() {
		opts.Notifier = notifications.Notifier{}
	}
	if cfg.RoomSensor.Configured() {
		opts.Room = sensor.NewSampler(model.MetricRoomTemperature, newReader(cfg.RoomSensor))
	}

	s.Loop, err = controlloop.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build control loop: %w", err)
	}

	log.Info().
		Str("controller_id", cfg.ControllerID).
		Int("actuators", len(cfg.Actuators)).
		Bool("room_sensor", opts.Room != nil).
		Msg("System built")
	return s, nil
}

// openStateDB is best effort: the controller runs without its state mirror.
func openStateDB(cfg config.Config) *sql.DB {
	conn, err := db.Open(cfg.StateDB)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.StateDB).Msg("State database unavailable, continuing without it")
		return nil
	}

	keep := []string{cfg.Fan.Actuator.Name}
	for _, a := range cfg.Actuators {
		keep = append(keep, a.Name)
	}
	if removed, err := db.PruneActuatorStates(conn, keep); err != nil {
		log.Warn().Err(err).Msg("Failed to prune actuator states")
	} else if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Pruned states of removed actuators")
	}
	return conn
}

// HandleCommand applies a manual command. Unknown names are ignored and values other
// than 0 or 1 are rejected, both per key.
func (s *System) HandleCommand(cmd model.Command) {
	names := make([]string, 0, len(cmd.Values))
	for name := range cmd.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		on, err := cmd.Switch(name)
		if err != nil {
			log.Warn().Err(err).Str("device", name).Msg("Rejecting command value")
			continue
		}

		ctrl, ok := s.Controllers[name]
		if !ok {
			if name == s.Config.Fan.Actuator.Name {
				log.Warn().Str("device", name).Msg("Fan is thermostat controlled, ignoring command")
			} else {
				log.Debug().Str("device", name).Msg("Ignoring command for unknown device")
			}
			continue
		}
		ctrl.ApplyManual(on)
	}
}

// Run runs the communicator and the control loop until ctx is cancelled. Cancellation is
// the normal way to stop and is not reported as an error.
func (s *System) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Communicator.Run(gctx) })
	g.Go(func() error { return s.Loop.Run(gctx) })

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// States returns every actuator state, fan first.
func (s *System) States() []actuator.State {
	names := make([]string, 0, len(s.Controllers))
	for name := range s.Controllers {
		names = append(names, name)
	}
	sort.Strings(names)

	states := []actuator.State{s.Fan.State()}
	for _, name := range names {
		states = append(states, s.Controllers[name].State())
	}
	return states
}
