package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Enabled   bool
	AgentAddr string
	Namespace string
	Tags      []string
}

// gauger is the part of the statsd client used here.
type gauger interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Close() error
}

var dogstatsd gauger

func InitMetrics(cfg Config) {
	if !cfg.Enabled {
		log.Info().Msg("Datadog metrics disabled")
		return
	}

	client, err := statsd.New(cfg.AgentAddr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	client.Namespace = cfg.Namespace
	client.Tags = cfg.Tags
	dogstatsd = client

	log.Info().
		Str("addr", cfg.AgentAddr).
		Str("namespace", cfg.Namespace).
		Strs("tags", cfg.Tags).
		Msg("Datadog metrics initialized")
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Gauge(name, value, tags, 1)
		if err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

// Close flushes buffered metrics.
func Close() {
	if dogstatsd == nil {
		return
	}
	if err := dogstatsd.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close DogStatsD client")
	}
	dogstatsd = nil
}
