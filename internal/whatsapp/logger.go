package whatsapp

import (
	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// waLogger routes whatsmeow's internal logging through zerolog so the
// whole process shares one log stream.
type waLogger struct {
	log zerolog.Logger
}

func newWALogger(log zerolog.Logger) waLog.Logger {
	return &waLogger{log: log}
}

func (w *waLogger) Errorf(msg string, args ...interface{}) {
	w.log.Error().Msgf(msg, args...)
}

func (w *waLogger) Warnf(msg string, args ...interface{}) {
	w.log.Warn().Msgf(msg, args...)
}

func (w *waLogger) Infof(msg string, args ...interface{}) {
	w.log.Info().Msgf(msg, args...)
}

func (w *waLogger) Debugf(msg string, args ...interface{}) {
	w.log.Debug().Msgf(msg, args...)
}

func (w *waLogger) Sub(module string) waLog.Logger {
	return &waLogger{log: w.log.With().Str("module", module).Logger()}
}
