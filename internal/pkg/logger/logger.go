package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config represents logger configuration
type Config struct {
	Level       string // debug, info, warn, error, fatal
	Environment string // development, production, test
	LogFile     string // optional file path for logs
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Error().Err(err).Str("file", cfg.LogFile).Msg("Failed to open log file")
		} else {
			writers = append(writers, file)
		}
	}

	multiWriter := zerolog.MultiLevelWriter(writers...)

	if cfg.Environment == "development" || cfg.Environment == "dev" {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}).With().Caller().Logger()
	} else {
		// JSON output in production
		log.Logger = zerolog.New(multiWriter).
			With().
			Timestamp().
			Caller().
			Logger()
	}

	return nil
}
