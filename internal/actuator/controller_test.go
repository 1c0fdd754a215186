package actuator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSwitch struct {
	mu      sync.Mutex
	on      bool
	calls   []string
	failOn  int // number of leading calls that fail
	readErr error
}

func (f *fakeSwitch) On() error  { return f.record("on", true) }
func (f *fakeSwitch) Off() error { return f.record("off", false) }

func (f *fakeSwitch) record(call string, state bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.failOn > 0 {
		f.failOn--
		return errors.New("transmitter busy")
	}
	f.on = state
	return nil
}

func (f *fakeSwitch) IsOn() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on, f.readErr
}

func (f *fakeSwitch) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestNewController_SeedsStateFromDevice(t *testing.T) {
	sw := &fakeSwitch{on: true}
	c := NewController("sunlight", sw)

	on, known := c.IsOn()
	assert.True(t, known)
	assert.True(t, on)
	assert.Nil(t, c.State().LastAuto)
	assert.Empty(t, sw.Calls())
}

func TestNewController_UnknownStateOnReadError(t *testing.T) {
	c := NewController("sunlight", &fakeSwitch{readErr: errors.New("no receiver")})

	_, known := c.IsOn()
	assert.False(t, known)
	assert.Nil(t, c.State().IsOn)
}

func TestApplyAuto_Idempotent(t *testing.T) {
	sw := &fakeSwitch{}
	c := NewController("sunlight", sw)

	assert.True(t, c.ApplyAuto(true))
	assert.False(t, c.ApplyAuto(true))

	assert.Equal(t, []string{"on"}, sw.Calls())
	on, _ := c.IsOn()
	assert.True(t, on)
}

func TestApplyAuto_FirstDecisionAlwaysApplies(t *testing.T) {
	// device already off, but no automatic decision has been made yet
	sw := &fakeSwitch{on: false}
	c := NewController("moonlight", sw)

	assert.True(t, c.ApplyAuto(false))
	assert.Equal(t, []string{"off"}, sw.Calls())
}

func TestApplyManual_OverridePersistsUntilAutoFlips(t *testing.T) {
	sw := &fakeSwitch{}
	c := NewController("sunlight", sw)

	c.ApplyAuto(true)
	c.ApplyManual(false)

	st := c.State()
	require.NotNil(t, st.LastAuto)
	assert.True(t, *st.LastAuto, "manual command must not touch the last automatic decision")
	require.NotNil(t, st.IsOn)
	assert.False(t, *st.IsOn)

	// same automatic decision as before: the manual override holds
	assert.False(t, c.ApplyAuto(true))
	on, _ := c.IsOn()
	assert.False(t, on)
	assert.Equal(t, []string{"on", "off"}, sw.Calls())

	// schedule flips: automatic control resumes
	assert.True(t, c.ApplyAuto(false))
	assert.True(t, c.ApplyAuto(true))
	on, _ = c.IsOn()
	assert.True(t, on)
	assert.Equal(t, []string{"on", "off", "off", "on"}, sw.Calls())
}

func TestApplyManual_RepeatsAreIssued(t *testing.T) {
	sw := &fakeSwitch{}
	c := NewController("sunlight", sw)

	c.ApplyManual(true)
	c.ApplyManual(true)
	assert.Equal(t, []string{"on", "on"}, sw.Calls())
}

func TestApplyManual_SwitchFailureIsSwallowed(t *testing.T) {
	sw := &fakeSwitch{failOn: 1}
	c := NewController("sunlight", sw)

	assert.NotPanics(t, func() { c.ApplyManual(true) })
	on, known := c.IsOn()
	assert.True(t, known)
	assert.True(t, on)
}

func TestController_ConcurrentCallersConverge(t *testing.T) {
	sw := &fakeSwitch{}
	c := NewController("sunlight", sw)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.ApplyManual(i%4 == 0)
			} else {
				c.ApplyAuto(i%3 == 0)
			}
		}(i)
	}
	wg.Wait()

	c.ApplyManual(true)
	physical, _ := sw.IsOn()
	assert.True(t, physical)
}

func TestPulsed_RepeatsWithDelay(t *testing.T) {
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleep = orig }()

	sw := &fakeSwitch{}
	p := Pulsed(sw, DefaultPulseAttempts, DefaultPulseDelay)

	require.NoError(t, p.On())
	assert.Equal(t, []string{"on", "on", "on"}, sw.Calls())
	assert.Equal(t, []time.Duration{DefaultPulseDelay, DefaultPulseDelay}, slept)

	on, err := p.IsOn()
	require.NoError(t, err)
	assert.True(t, on)
}

func TestPulsed_FailsOnlyWhenEveryAttemptFails(t *testing.T) {
	orig := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = orig }()

	partial := &fakeSwitch{failOn: 2}
	assert.NoError(t, Pulsed(partial, 3, time.Millisecond).Off())

	dead := &fakeSwitch{failOn: 3}
	assert.Error(t, Pulsed(dead, 3, time.Millisecond).Off())
}

func TestPulsed_AsControllerSwitchCountsOnce(t *testing.T) {
	orig := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = orig }()

	sw := &fakeSwitch{}
	c := NewController("sunlight", Pulsed(sw, 3, time.Millisecond))
	c.ApplyAuto(true)
	c.ApplyAuto(true)

	assert.Equal(t, []string{"on", "on", "on"}, sw.Calls(), "one automatic switch is one pulse sequence")
}
