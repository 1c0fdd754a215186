package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/thatsimonsguy/aquarium-controller/internal/actuator"
	"github.com/thatsimonsguy/aquarium-controller/internal/model"
	"github.com/thatsimonsguy/aquarium-controller/internal/schedule"
	"github.com/thatsimonsguy/aquarium-controller/internal/thermostat"
)

const (
	DriverGPIO = "gpio"
	DriverRF   = "rf"
)

type Sensor struct {
	// one-wire probe id under /sys/bus/w1/devices
	Bus string `json:"bus" yaml:"bus"`

	// external query tool, used when Bus is empty
	Command        string   `json:"command" yaml:"command"`
	Args           []string `json:"args" yaml:"args"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds"`
}

func (s Sensor) Configured() bool {
	return s.Bus != "" || s.Command != ""
}

type Schedule struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type Actuator struct {
	Name   string `json:"name" yaml:"name"`
	Driver string `json:"driver" yaml:"driver"`

	// gpio relay
	Pin        *int `json:"pin" yaml:"pin"`
	ActiveHigh bool `json:"active_high" yaml:"active_high"`

	// rf socket
	OnCode     int `json:"on_code" yaml:"on_code"`
	OffCode    int `json:"off_code" yaml:"off_code"`
	PulseWidth int `json:"pulse_width" yaml:"pulse_width"`

	Schedule *Schedule `json:"schedule" yaml:"schedule"`
	// actuators in the same group must not have overlapping schedules
	Group string `json:"group" yaml:"group"`

	rule *model.ScheduleRule
}

// Rule is the parsed schedule, nil for actuators without one. Valid after validation.
func (a Actuator) Rule() *model.ScheduleRule {
	return a.rule
}

type Fan struct {
	thermostat.Config `yaml:",inline"`
	Actuator          Actuator `json:"actuator" yaml:"actuator"`
}

type RF struct {
	Command          string `json:"command" yaml:"command"`
	PulseAttempts    int    `json:"pulse_attempts" yaml:"pulse_attempts"`
	PulseDelayMillis int    `json:"pulse_delay_ms" yaml:"pulse_delay_ms"`
}

type Config struct {
	ConfigFile string        `json:"-" yaml:"-"`
	LogLevel   zerolog.Level `json:"-" yaml:"-"`
	LogFile    string        `json:"-" yaml:"-"`
	StateDB    string        `json:"-" yaml:"-"`

	ControllerID        string `json:"controller_id" yaml:"controller_id"`
	ServerWebsocket     string `json:"server_websocket" yaml:"server_websocket"`
	SendIntervalSeconds int    `json:"send_interval_seconds" yaml:"send_interval_seconds"`
	AggregationCount    int    `json:"aggregation_count" yaml:"aggregation_count"`
	PingIntervalSeconds int    `json:"ping_interval_seconds" yaml:"ping_interval_seconds"`

	WaterSensor Sensor     `json:"water_sensor" yaml:"water_sensor"`
	RoomSensor  Sensor     `json:"room_sensor" yaml:"room_sensor"`
	Fan         Fan        `json:"fan" yaml:"fan"`
	Actuators   []Actuator `json:"actuators" yaml:"actuators"`
	RF          RF         `json:"rf" yaml:"rf"`

	SafeMode bool `json:"safe_mode" yaml:"safe_mode"`

	EnableDatadog bool     `json:"enable_datadog" yaml:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr" yaml:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace" yaml:"dd_namespace"`
	DDTags        []string `json:"dd_tags" yaml:"dd_tags"`

	NtfyServer string `json:"ntfy_server" yaml:"ntfy_server"`
	NtfyTopic  string `json:"ntfy_topic" yaml:"ntfy_topic"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file (.json, .yaml or .yml)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFile, "log-file", "/var/log/aquarium-controller.log", "Path to log file, empty for stderr only")
	flag.StringVar(&cfg.StateDB, "state-db", "data/aquarium.db", "Path to the SQLite actuator state database, empty to disable")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	if err := decodeFile(cfg.ConfigFile, &cfg); err != nil {
		panic("Failed to load config file: " + err.Error())
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		panic("Invalid config: " + err.Error())
	}
	return cfg
}

// LoadFile reads and validates a config file without touching command line flags.
func LoadFile(path string) (Config, error) {
	cfg := Config{ConfigFile: path, LogLevel: zerolog.InfoLevel}
	if err := decodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(cfg)
	default:
		err = json.NewDecoder(file).Decode(cfg)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.ControllerID == "" {
		cfg.ControllerID = "aqua"
	}
	if cfg.SendIntervalSeconds == 0 {
		cfg.SendIntervalSeconds = 180
	}
	if cfg.AggregationCount == 0 {
		cfg.AggregationCount = 6
	}
	if cfg.PingIntervalSeconds == 0 {
		cfg.PingIntervalSeconds = 30
	}
	if cfg.Fan.Actuator.Name == "" {
		cfg.Fan.Actuator.Name = model.MetricFan
	}
	if cfg.Fan.Actuator.Driver == "" {
		cfg.Fan.Actuator.Driver = DriverGPIO
	}
	if cfg.RF.PulseAttempts == 0 {
		cfg.RF.PulseAttempts = actuator.DefaultPulseAttempts
	}
	if cfg.RF.PulseDelayMillis == 0 {
		cfg.RF.PulseDelayMillis = int(actuator.DefaultPulseDelay / time.Millisecond)
	}
}

// TickPeriod is the sampling interval: the send interval spread over the aggregation count.
func (cfg Config) TickPeriod() time.Duration {
	return time.Duration(cfg.SendIntervalSeconds) * time.Second / time.Duration(cfg.AggregationCount)
}

func (r RF) PulseDelay() time.Duration {
	return time.Duration(r.PulseDelayMillis) * time.Millisecond
}

func (cfg *Config) validate() error {
	var problems []error

	if cfg.ControllerID == "" {
		problems = append(problems, errors.New("controller_id is required"))
	}
	if u, err := url.Parse(cfg.ServerWebsocket); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		problems = append(problems, fmt.Errorf("server_websocket must be a ws:// or wss:// url, got %q", cfg.ServerWebsocket))
	}
	if cfg.SendIntervalSeconds <= 0 {
		problems = append(problems, errors.New("send_interval_seconds must be positive"))
	}
	if cfg.AggregationCount <= 0 {
		problems = append(problems, errors.New("aggregation_count must be positive"))
	}
	if cfg.PingIntervalSeconds < 0 {
		problems = append(problems, errors.New("ping_interval_seconds must not be negative"))
	}
	if cfg.RF.PulseAttempts < 1 || cfg.RF.PulseDelayMillis < 0 {
		problems = append(problems, errors.New("rf pulse_attempts must be at least 1 and pulse_delay_ms not negative"))
	}

	if !cfg.WaterSensor.Configured() {
		problems = append(problems, errors.New("water_sensor needs a bus or a command"))
	}
	if err := cfg.Fan.Config.Validate(); err != nil {
		problems = append(problems, err)
	}

	var (
		names     = map[string]bool{}
		usedPins  = map[int]string{}
		reserved  = map[string]bool{model.MetricWaterTemperature: true, model.MetricRoomTemperature: true}
		scheduled = map[string][]Actuator{}
	)

	all := append([]*Actuator{&cfg.Fan.Actuator}, pointers(cfg.Actuators)...)
	for i, a := range all {
		label := a.Name
		if label == "" {
			label = fmt.Sprintf("actuators[%d]", i-1)
			problems = append(problems, fmt.Errorf("%s: name is required", label))
		}
		// the fan's telemetry key is model.MetricFan whatever the fan actuator is called
		if names[a.Name] || reserved[a.Name] || (i > 0 && (a.Name == cfg.Fan.Actuator.Name || a.Name == model.MetricFan)) {
			problems = append(problems, fmt.Errorf("%s: duplicate or reserved actuator name", label))
		}
		names[a.Name] = true

		switch a.Driver {
		case DriverGPIO:
			if a.Pin == nil {
				problems = append(problems, fmt.Errorf("%s: gpio driver needs a pin", label))
			} else if other, exists := usedPins[*a.Pin]; exists {
				problems = append(problems, fmt.Errorf("%s and %s both use pin %d", label, other, *a.Pin))
			} else {
				usedPins[*a.Pin] = label
			}
		case DriverRF:
			if a.OnCode == a.OffCode {
				problems = append(problems, fmt.Errorf("%s: rf on_code and off_code must differ", label))
			}
		default:
			problems = append(problems, fmt.Errorf("%s: unknown driver %q", label, a.Driver))
		}

		if a.Schedule == nil {
			continue
		}
		if i == 0 {
			problems = append(problems, errors.New("fan is thermostat controlled and cannot have a schedule"))
			continue
		}
		rule, err := schedule.ParseRule(a.Schedule.Start, a.Schedule.End)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", label, err))
			continue
		}
		a.rule = &rule
		if a.Group != "" {
			scheduled[a.Group] = append(scheduled[a.Group], *a)
		}
	}

	for group, members := range scheduled {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if schedule.Overlaps(*members[i].rule, *members[j].rule) {
					problems = append(problems, fmt.Errorf("group %s: schedules of %s and %s overlap", group, members[i].Name, members[j].Name))
				}
			}
		}
	}

	return errors.Join(problems...)
}

func pointers(as []Actuator) []*Actuator {
	out := make([]*Actuator, len(as))
	for i := range as {
		out[i] = &as[i]
	}
	return out
}
