// Package stdlogger adapts printf style loggers onto the global zerolog
// logger. Libraries expecting a std log compatible sink, like the
// prometheus http handler, can use it directly.
package stdlogger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to zerolog.
type Logger struct{}

// New creates a stdlogger adapter.
func New() *Logger {
	return &Logger{}
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

// Println logs at error level. It satisfies promhttp.Logger so handler
// errors of the metrics endpoint end up in our log.
func (l *Logger) Println(v ...interface{}) {
	log.Error().Msg(strings.TrimRight(fmt.Sprintln(v...), "\n"))
}
