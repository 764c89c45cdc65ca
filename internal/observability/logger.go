package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/happy-baby-style/internal/config"
)

// SetupLogger configures the global zerolog logger from the app config.
// Unknown levels fall back to info.
func SetupLogger(cfg config.AppConfig, service string) {
	setupLogger(os.Stderr, cfg, service)
}

func setupLogger(out io.Writer, cfg config.AppConfig, service string) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", service).Logger()
}
