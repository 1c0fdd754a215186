package controlloop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/aquarium-controller/db"
	"github.com/thatsimonsguy/aquarium-controller/internal/actuator"
	"github.com/thatsimonsguy/aquarium-controller/internal/aggregation"
	"github.com/thatsimonsguy/aquarium-controller/internal/datadog"
	"github.com/thatsimonsguy/aquarium-controller/internal/model"
	"github.com/thatsimonsguy/aquarium-controller/internal/schedule"
	"github.com/thatsimonsguy/aquarium-controller/internal/sensor"
	"github.com/thatsimonsguy/aquarium-controller/internal/thermostat"
)

// Sender delivers a snapshot best-effort. It must not block for long.
type Sender interface {
	Send(model.TelemetrySnapshot)
}

// Notifier alerts the operator. Calls happen off the loop goroutine.
type Notifier interface {
	Send(title, message string) error
}

// Scheduled is an actuator with an optional daily schedule. Actuators without a rule
// are only switched by manual commands but still reported.
type Scheduled struct {
	Controller *actuator.Controller
	Rule       *model.ScheduleRule
}

type Options struct {
	ControllerID     string
	Period           time.Duration
	AggregationCount int

	Water *sensor.Sampler
	// optional
	Room *sensor.Sampler

	Fan       *thermostat.Fan
	Actuators []Scheduled

	Sender Sender
	// optional actuator state mirror
	DB *sql.DB
	// optional
	Notifier Notifier
}

type metric struct {
	sampler *sensor.Sampler
	window  *aggregation.Window
}

type Loop struct {
	controllerID string
	period       time.Duration
	target       int

	water   metric
	metrics []metric

	fan       *thermostat.Fan
	actuators []Scheduled

	sender   Sender
	db       *sql.DB
	notifier Notifier

	// set while cycles complete without a water temperature
	waterLost bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options) (*Loop, error) {
	if opts.Period <= 0 || opts.AggregationCount <= 0 {
		return nil, errors.New("control loop needs a positive period and aggregation count")
	}
	if opts.Water == nil || opts.Fan == nil || opts.Sender == nil {
		return nil, errors.New("control loop needs a water sampler, a fan and a sender")
	}

	l := &Loop{
		controllerID: opts.ControllerID,
		period:       opts.Period,
		target:       opts.AggregationCount,
		fan:          opts.Fan,
		actuators:    opts.Actuators,
		sender:       opts.Sender,
		db:           opts.DB,
		notifier:     opts.Notifier,
		now:          time.Now,
		sleep:        sleepCtx,
	}

	l.water = metric{opts.Water, aggregation.NewWindow(opts.Water.Metric, l.target)}
	l.metrics = []metric{l.water}
	if opts.Room != nil {
		l.metrics = append(l.metrics, metric{opts.Room, aggregation.NewWindow(opts.Room.Metric, l.target)})
	}
	return l, nil
}

// Run ticks until ctx is cancelled. Overruns shorten the following sleep to zero; ticks
// are never skipped or compressed.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().
		Dur("period", l.period).
		Int("aggregation_count", l.target).
		Msg("Starting control loop")

	for {
		start := l.now()
		if snapshot := l.guardedTick(start); snapshot != nil {
			go l.sender.Send(*snapshot)
		}

		wait := l.period - l.now().Sub(start)
		if wait < 0 {
			log.Warn().Dur("overrun", -wait).Msg("Control loop tick overran its period")
			wait = 0
		}
		if err := l.sleep(ctx, wait); err != nil {
			log.Info().Msg("Control loop stopped")
			return err
		}
	}
}

// guardedTick runs one tick plus its bookkeeping. A panic is logged and the tick dropped.
func (l *Loop) guardedTick(now time.Time) (snapshot *model.TelemetrySnapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Control loop tick failed")
			snapshot = nil
		}
	}()

	snapshot = l.Tick(now)
	if snapshot != nil {
		l.record(*snapshot, now)
	}
	return snapshot
}

// Tick samples, applies schedules and, at the end of an aggregation cycle, evaluates the
// fan and builds the snapshot. It returns nil when no metric completed this tick.
func (l *Loop) Tick(now time.Time) *model.TelemetrySnapshot {
	for _, m := range l.metrics {
		m.window.Add(m.sampler.Read())
	}

	for _, a := range l.actuators {
		if a.Rule == nil {
			continue
		}
		a.Controller.ApplyAuto(schedule.IsActive(*a.Rule, now))
	}

	// windows are pushed together every tick, so they complete on the same tick
	cycleDone := l.water.window.Elapsed() >= l.target

	values := make(map[string]float64)
	var waterMedian *float64
	for _, m := range l.metrics {
		v, ok := m.window.TryEmit(l.target)
		if !ok {
			continue
		}
		values[m.window.Metric] = v
		if m.window == l.water.window {
			median := v
			waterMedian = &median
		}
	}

	if !cycleDone {
		return nil
	}

	fanOn := l.fan.Evaluate(waterMedian)
	l.trackWater(waterMedian)

	if len(values) == 0 {
		log.Warn().Msg("No metric completed this cycle, nothing to report")
		return nil
	}

	values[model.MetricFan] = model.BoolToFloat(fanOn)
	for _, a := range l.actuators {
		if on, known := a.Controller.IsOn(); known {
			values[a.Controller.Name] = model.BoolToFloat(on)
		}
	}

	return &model.TelemetrySnapshot{ControllerID: l.controllerID, Values: values}
}

// trackWater alerts once when water temperature goes missing and once when it returns.
func (l *Loop) trackWater(median *float64) {
	lost := median == nil
	if lost == l.waterLost {
		return
	}
	l.waterLost = lost

	var title, message string
	if lost {
		title, message = "Aquarium Sensor Failure", "No water temperature this cycle, the cooling fan has been switched off."
		log.Warn().Msg("Water temperature lost")
	} else {
		title, message = "Aquarium Sensor Recovery", fmt.Sprintf("Water temperature is back at %.2f°C, fan control resumed.", *median)
		log.Info().Float64("temp", *median).Msg("Water temperature recovered")
	}

	if l.notifier == nil {
		return
	}
	notifier := l.notifier
	go func() {
		if err := notifier.Send(title, message); err != nil {
			log.Warn().Err(err).Msg("Failed to send notification")
		}
	}()
}

func (l *Loop) record(snapshot model.TelemetrySnapshot, now time.Time) {
	tag := "controller:" + l.controllerID
	for name, v := range snapshot.Values {
		datadog.Gauge(name, v, tag)
	}

	if l.db == nil {
		return
	}
	states := make([]actuator.State, 0, len(l.actuators)+1)
	states = append(states, l.fan.State())
	for _, a := range l.actuators {
		states = append(states, a.Controller.State())
	}
	if err := db.RecordActuatorStates(l.db, states, now); err != nil {
		log.Warn().Err(err).Msg("Failed to record actuator states")
	}
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
