package sensor

import (
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/aquarium-controller/internal/model"
)

// Reader is a temperature source such as a probe or an external query tool.
type Reader interface {
	ReadTemperature() (float64, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func() (float64, error)

func (f ReaderFunc) ReadTemperature() (float64, error) {
	return f()
}

// Sampler turns reader failures into absent samples. It never retries: a failed tick
// is simply missing from that window.
type Sampler struct {
	Metric string
	reader Reader
}

func NewSampler(metric string, reader Reader) *Sampler {
	return &Sampler{Metric: metric, reader: reader}
}

func (s *Sampler) Read() model.Sample {
	temp, err := s.reader.ReadTemperature()
	if err != nil {
		log.Error().Err(err).Str("metric", s.Metric).Msg("Sensor read failed, sample dropped")
		return model.AbsentSample()
	}

	log.Debug().Str("metric", s.Metric).Float64("temp", temp).Msg("Sensor sample")
	return model.PresentSample(temp)
}
