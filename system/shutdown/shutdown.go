package shutdown

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/aquarium-controller/db"
	"github.com/thatsimonsguy/aquarium-controller/internal/app"
	"github.com/thatsimonsguy/aquarium-controller/internal/datadog"
)

var exit = os.Exit

// Shutdown is best effort: it records the final actuator states, closes the state
// database and flushes metrics. Devices are left as they are.
func Shutdown(sys *app.System) {
	if sys != nil && sys.DB != nil {
		if err := db.RecordActuatorStates(sys.DB, sys.States(), time.Now()); err != nil {
			log.Warn().Err(err).Msg("Failed to record final actuator states")
		}
		if err := sys.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close state database")
		}
	}
	datadog.Close()
	log.Info().Msg("Aquarium controller stopped")
}

func ShutdownWithError(sys *app.System, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown(sys)
	exit(1)
}
