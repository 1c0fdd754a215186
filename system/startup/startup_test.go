package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/aquarium-controller/internal/config"
)

func intPtr(i int) *int { return &i }

func TestWriteBootScript(t *testing.T) {
	cfg := config.Config{
		Fan: config.Fan{Actuator: config.Actuator{Name: "fan", Driver: config.DriverGPIO, Pin: intPtr(17)}},
		Actuators: []config.Actuator{
			{Name: "heater", Driver: config.DriverGPIO, Pin: intPtr(27), ActiveHigh: true},
			{Name: "sunlight", Driver: config.DriverRF, OnCode: 1, OffCode: 2},
		},
	}
	path := filepath.Join(t.TempDir(), "aquarium-boot.sh")

	require.NoError(t, WriteBootScript(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	script := string(data)
	assert.Contains(t, script, "#!/bin/bash")
	assert.Contains(t, script, "pinctrl set 17 op pn dh")
	assert.Contains(t, script, "pinctrl set 27 op pn dl")
	assert.NotContains(t, script, "sunlight")
}

func TestInstallServices(t *testing.T) {
	dir := t.TempDir()
	bootUnit := filepath.Join(dir, "aquarium-gpio.service")
	mainUnit := filepath.Join(dir, "aquarium-controller.service")

	require.NoError(t, InstallBootService("/usr/local/bin/aquarium-boot.sh", bootUnit))
	require.NoError(t, InstallControllerService(ServiceOptions{
		User:       "pi",
		WorkDir:    "/home/pi/aquarium",
		ExecStart:  "/usr/local/bin/aquarium-controller -config-file /etc/aquarium/config.yaml",
		BootUnit:   bootUnit,
		OutputPath: mainUnit,
	}))

	boot, err := os.ReadFile(bootUnit)
	require.NoError(t, err)
	assert.Contains(t, string(boot), "ExecStart=/usr/local/bin/aquarium-boot.sh")

	main, err := os.ReadFile(mainUnit)
	require.NoError(t, err)
	assert.Contains(t, string(main), "Requires=aquarium-gpio.service")
	assert.Contains(t, string(main), "User=pi")
	assert.Contains(t, string(main), "config.yaml")
}
