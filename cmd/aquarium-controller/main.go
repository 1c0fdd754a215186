package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/aquarium-controller/internal/app"
	"github.com/thatsimonsguy/aquarium-controller/internal/config"
	"github.com/thatsimonsguy/aquarium-controller/internal/datadog"
	"github.com/thatsimonsguy/aquarium-controller/internal/gpio"
	"github.com/thatsimonsguy/aquarium-controller/internal/logging"
	"github.com/thatsimonsguy/aquarium-controller/internal/notifications"
	"github.com/thatsimonsguy/aquarium-controller/internal/rf"
	"github.com/thatsimonsguy/aquarium-controller/system/shutdown"
)

func main() {
	cfg := config.Load()
	logFile := logging.Init(cfg.LogLevel, cfg.LogFile)
	defer logFile.Close()

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("controller_id", cfg.ControllerID).
		Str("server", cfg.ServerWebsocket).
		Msg("Starting aquarium controller")

	gpio.SetSafeMode(cfg.SafeMode)
	rf.SetSafeMode(cfg.SafeMode)
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED, relays and rf sockets are not switched")
	}

	datadog.InitMetrics(datadog.Config{
		Enabled:   cfg.EnableDatadog,
		AgentAddr: cfg.DDAgentAddr,
		Namespace: cfg.DDNamespace,
		Tags:      cfg.DDTags,
	})

	notifications.Init(cfg.NtfyServer, cfg.NtfyTopic)

	sys, err := app.Build(cfg)
	if err != nil {
		shutdown.ShutdownWithError(nil, err, "Failed to build system")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sys.Run(ctx); err != nil {
		shutdown.ShutdownWithError(sys, err, "Aquarium controller failed")
	}
	shutdown.Shutdown(sys)
}
