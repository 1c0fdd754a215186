package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultW1Base = "/sys/bus/w1/devices"

// W1Thermometer reads a DS18B20-style one-wire probe through sysfs.
type W1Thermometer struct {
	Path string
}

func NewW1Thermometer(base, bus string) *W1Thermometer {
	if base == "" {
		base = DefaultW1Base
	}
	return &W1Thermometer{Path: filepath.Join(base, bus, "w1_slave")}
}

var readFile = os.ReadFile

// ReadTemperature returns degrees Celsius.
func (w *W1Thermometer) ReadTemperature() (float64, error) {
	data, err := readFile(w.Path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", w.Path, err)
	}
	return parseW1Slave(string(data))
}

func parseW1Slave(data string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("temperature data missing or malformed: %q", data)
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, fmt.Errorf("sensor crc check failed: %q", lines[0])
	}

	parts := strings.Split(lines[1], "t=")
	if len(parts) != 2 {
		return 0, fmt.Errorf("could not parse temperature line: %q", lines[1])
	}

	milli, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("failed to convert temperature to int: %w", err)
	}

	// 85000 is the DS18B20 power-on reset value, not a measurement
	if milli == 85000 {
		return 0, fmt.Errorf("sensor returned power-on reset value")
	}
	return float64(milli) / 1000.0, nil
}
