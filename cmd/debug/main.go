package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thatsimonsguy/aquarium-controller/db"
	"github.com/thatsimonsguy/aquarium-controller/internal/config"
	"github.com/thatsimonsguy/aquarium-controller/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, device, command, configFile, out, bootScript, bootUnit, execStart, user, workDir string
	flag.StringVar(&dbPath, "db", "data/aquarium.db", "Path to the SQLite state database")
	flag.StringVar(&device, "device", "", "Limit states to one actuator")
	flag.StringVar(&command, "cmd", "", "Command to run: states, clear-states, check-config, boot-script, run-boot-script, install-services")
	flag.StringVar(&configFile, "config-file", "config.json", "Controller config file")
	flag.StringVar(&out, "out", "", "Output path for boot-script and install-services")
	flag.StringVar(&bootScript, "boot-script", "/usr/local/bin/aquarium-boot.sh", "Boot script path for install-services and run-boot-script")
	flag.StringVar(&bootUnit, "boot-unit", "/etc/systemd/system/aquarium-gpio.service", "Boot unit path for install-services")
	flag.StringVar(&execStart, "exec", "/usr/local/bin/aquarium-controller -config-file /etc/aquarium/config.json", "Controller command line for install-services")
	flag.StringVar(&user, "user", "pi", "Service user for install-services")
	flag.StringVar(&workDir, "workdir", "/home/pi/aquarium-controller", "Working directory for install-services")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of aquarium-debug:")
		fmt.Println("  -db string\tPath to the SQLite state database (default 'data/aquarium.db')")
		fmt.Println("  -cmd string\tCommand to run: states, clear-states, check-config, boot-script, run-boot-script, install-services")
		fmt.Println("  -device string\tLimit states to one actuator")
		fmt.Println("  -config-file string\tController config file")
		fmt.Println("  -out string\tOutput path for boot-script (script) and install-services (controller unit)")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "states":
		err = db.PrintStatesCLI(dbPath, device, os.Stdout)
	case "clear-states":
		err = db.ClearStatesCLI(dbPath)
	case "check-config":
		_, err = config.LoadFile(configFile)
	case "boot-script":
		if out == "" {
			fmt.Println("Error: -out is required")
			os.Exit(1)
		}
		var cfg config.Config
		if cfg, err = config.LoadFile(configFile); err == nil {
			err = startup.WriteBootScript(cfg, out)
		}
	case "install-services":
		if out == "" {
			fmt.Println("Error: -out is required")
			os.Exit(1)
		}
		if err = startup.InstallBootService(bootScript, bootUnit); err != nil {
			break
		}
		err = startup.InstallControllerService(startup.ServiceOptions{
			User:       user,
			WorkDir:    workDir,
			ExecStart:  execStart,
			BootUnit:   bootUnit,
			OutputPath: out,
		})
	case "run-boot-script":
		err = startup.RunBootScript(bootScript)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}
