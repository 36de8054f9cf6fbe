// Package gorm routes gorm log output to the global zerolog logger.
package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"
)

// Logger implements gorm's logger.Interface on top of zerolog.
type Logger struct {
	// SlowThreshold marks queries above it as slow in the log.
	SlowThreshold time.Duration
}

// New creates a gorm logger adapter with a default slow query threshold.
func New() *Logger {
	return &Logger{SlowThreshold: 200 * time.Millisecond} //nolint: mnd
}

// LogMode implements logger.Interface. The effective level is the
// global zerolog level, the requested gorm level is ignored.
func (l *Logger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

// Info implements logger.Interface.
func (l *Logger) Info(_ context.Context, msg string, args ...interface{}) {
	log.Info().Msgf(msg, args...)
}

// Warn implements logger.Interface.
func (l *Logger) Warn(_ context.Context, msg string, args ...interface{}) {
	log.Warn().Msgf(msg, args...)
}

// Error implements logger.Interface.
func (l *Logger) Error(_ context.Context, msg string, args ...interface{}) {
	log.Error().Msgf(msg, args...)
}

// Trace implements logger.Interface query logging. Queries log at trace
// level, slow queries at warn, failed queries at error. A not found
// result is not an error at this layer.
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	var e *zerolog.Event

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		e = log.Error().Err(err)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		e = log.Warn().Dur("slow_threshold", l.SlowThreshold)
	default:
		e = log.Trace()
	}

	sql, rows := fc()
	e.Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
}
