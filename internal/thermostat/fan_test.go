package thermostat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/aquarium-controller/internal/actuator"
)

type countingSwitch struct {
	on   bool
	ons  int
	offs int
}

func (s *countingSwitch) On() error           { s.on = true; s.ons++; return nil }
func (s *countingSwitch) Off() error          { s.on = false; s.offs++; return nil }
func (s *countingSwitch) IsOn() (bool, error) { return s.on, nil }

var testConfig = Config{OnThreshold: 26.0, OffThreshold: 25.5}

func temp(v float64) *float64 { return &v }

func newFan(t *testing.T, initiallyOn bool) (*Fan, *countingSwitch) {
	sw := &countingSwitch{on: initiallyOn}
	f, err := NewFan(testConfig, actuator.NewController("fan", sw))
	require.NoError(t, err)
	return f, sw
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, testConfig.Validate())
	assert.Error(t, Config{OnThreshold: 25.5, OffThreshold: 25.5}.Validate())
	assert.Error(t, Config{OnThreshold: 25.0, OffThreshold: 25.5}.Validate())

	_, err := NewFan(Config{OnThreshold: 1, OffThreshold: 2}, actuator.NewController("fan", &countingSwitch{}))
	assert.Error(t, err)
}

func TestFan_Hysteresis(t *testing.T) {
	f, sw := newFan(t, false)

	for _, v := range []float64{20.0, 25.0, 25.5, 25.9, 25.99} {
		assert.False(t, f.Evaluate(temp(v)), "%.2f must not start the fan", v)
	}
	assert.Equal(t, 0, sw.ons+sw.offs)

	assert.True(t, f.Evaluate(temp(26.0)))
	assert.Equal(t, 1, sw.ons)

	for _, v := range []float64{30.0, 26.0, 25.9, 25.51} {
		assert.True(t, f.Evaluate(temp(v)), "%.2f must keep the fan running", v)
	}
	assert.Equal(t, 1, sw.ons)

	assert.False(t, f.Evaluate(temp(25.5)))
	assert.Equal(t, 1, sw.offs)
	assert.False(t, sw.on)
}

func TestFan_InitialStateFromActuator(t *testing.T) {
	f, sw := newFan(t, true)
	assert.True(t, f.On())

	assert.True(t, f.Evaluate(temp(25.8)))
	assert.Equal(t, 0, sw.ons+sw.offs)
}

func TestFan_UnknownTemperatureForcesOff(t *testing.T) {
	f, sw := newFan(t, false)
	f.Evaluate(temp(27))
	require.True(t, sw.on)

	assert.False(t, f.Evaluate(nil))
	assert.False(t, sw.on)
	assert.Equal(t, 1, sw.offs)

	// already off: no further switching
	assert.False(t, f.Evaluate(nil))
	assert.Equal(t, 1, sw.offs)
}
