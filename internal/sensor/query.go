package sensor

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

const DefaultQueryTimeout = 10 * time.Second

var numberRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// CommandQuery asks an external tool for a temperature and parses the first number it prints.
type CommandQuery struct {
	Command string
	Args    []string
	Timeout time.Duration
}

var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (q *CommandQuery) ReadTemperature() (float64, error) {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := runCommand(ctx, q.Command, q.Args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute %s: %w", q.Command, err)
	}

	match := numberRegex.Find(out)
	if match == nil {
		return 0, fmt.Errorf("no temperature in output of %s: %q", q.Command, string(out))
	}
	return strconv.ParseFloat(string(match), 64)
}
