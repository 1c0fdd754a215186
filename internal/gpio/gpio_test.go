package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockPins(t *testing.T) map[int]bool {
	fakeState := map[int]bool{}
	origRead, origDrive := readLevel, driveOutput
	readLevel = func(pin int) (bool, error) { return fakeState[pin], nil }
	driveOutput = func(pin int, high bool) error {
		fakeState[pin] = high
		return nil
	}
	t.Cleanup(func() {
		readLevel, driveOutput = origRead, origDrive
		SetSafeMode(false)
	})
	return fakeState
}

func TestRelay_ActiveHigh(t *testing.T) {
	fakeState := mockPins(t)
	r := NewRelay("fan", Pin{Number: 17, ActiveHigh: true})

	require.NoError(t, r.On())
	assert.True(t, fakeState[17])
	on, err := r.IsOn()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, r.Off())
	assert.False(t, fakeState[17])
	on, _ = r.IsOn()
	assert.False(t, on)
}

func TestRelay_ActiveLow(t *testing.T) {
	fakeState := mockPins(t)
	r := NewRelay("fan", Pin{Number: 23, ActiveHigh: false})

	require.NoError(t, r.On())
	assert.False(t, fakeState[23], "active-low relay is energized by a low level")
	on, _ := r.IsOn()
	assert.True(t, on)

	require.NoError(t, r.Off())
	assert.True(t, fakeState[23])
}

func TestRelay_SafeModeDoesNotSwitch(t *testing.T) {
	fakeState := mockPins(t)
	SetSafeMode(true)

	r := NewRelay("fan", Pin{Number: 17, ActiveHigh: true})
	require.NoError(t, r.On())
	_, touched := fakeState[17]
	assert.False(t, touched)
}

func TestRelay_ReadError(t *testing.T) {
	mockPins(t)
	readLevel = func(int) (bool, error) { return false, errors.New("pinctrl missing") }

	_, err := NewRelay("fan", Pin{Number: 17, ActiveHigh: true}).IsOn()
	assert.Error(t, err)
}
