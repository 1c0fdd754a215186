package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init routes the global logger to stderr and, when path is set, to an append-only log file.
// The returned closer releases the file.
func Init(level zerolog.Level, path string) io.Closer {
	writers := []io.Writer{os.Stderr}

	var logFile *os.File
	if path != "" {
		var err error
		logFile, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		writers = append(writers, logFile)
	}

	multi := zerolog.MultiLevelWriter(writers...)

	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if level == zerolog.DebugLevel {
		log.Debug().Msg("Log level set to DEBUG")
	}

	if logFile == nil {
		return io.NopCloser(nil)
	}
	return logFile
}
