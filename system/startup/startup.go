package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/aquarium-controller/internal/config"
)

// WriteBootScript writes a shell script that drives every relay to its off level at boot,
// before the controller starts and takes over.
func WriteBootScript(cfg config.Config, path string) error {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Aquarium relay configuration at boot", "")

	write := func(a config.Actuator) {
		if a.Driver != config.DriverGPIO || a.Pin == nil {
			return
		}
		// off means the inactive level for the relay polarity
		drive := "dh"
		if a.ActiveHigh {
			drive = "dl"
		}
		lines = append(lines, fmt.Sprintf("# %s", a.Name))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", *a.Pin, drive))
		lines = append(lines, "")
	}

	write(cfg.Fan.Actuator)
	for _, a := range cfg.Actuators {
		write(a)
	}

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(contents), 0755)
}

func InstallBootService(scriptPath, unitPath string) error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure aquarium relay pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, scriptPath)

	return os.WriteFile(unitPath, []byte(unitContents), 0644)
}

type ServiceOptions struct {
	User       string
	WorkDir    string
	ExecStart  string
	BootUnit   string
	OutputPath string
}

// InstallControllerService writes the unit for the controller itself, ordered after the boot unit.
func InstallControllerService(opts ServiceOptions) error {
	bootUnit := filepath.Base(opts.BootUnit)

	unit := fmt.Sprintf(`[Unit]
Description=Aquarium controller
After=%s network-online.target
Requires=%s

[Service]
Type=simple
User=%s
WorkingDirectory=%s
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, bootUnit, bootUnit, opts.User, opts.WorkDir, opts.ExecStart)

	return os.WriteFile(opts.OutputPath, []byte(unit), 0644)
}

func RunBootScript(path string) error {
	cmd := exec.Command("/bin/bash", path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
