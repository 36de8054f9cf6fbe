package audit

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/db/models"
)

// LogRecorder writes every attempt to the application log. Failures log
// at warn level so operators can alert on them, successes at info.
type LogRecorder struct{}

// Record implements Recorder.
func (LogRecorder) Record(attempt Attempt) {
	var evt *zerolog.Event

	if attempt.Outcome == models.AttemptOutcomeSuccess {
		evt = log.Info()
	} else {
		evt = log.Warn().Str("reason", attempt.Reason)
	}

	evt.
		Str("identifier", attempt.Identifier).
		Str("outcome", attempt.Outcome).
		Str("auth_type", attempt.AuthType).
		Str("ip", attempt.RemoteIP).
		Msg("login attempt")
}

var (
	// attemptsCounter is a singleton for the counter vec.
	attemptsCounter *prometheus.CounterVec //nolint:gochecknoglobals
)

// MetricsRecorder counts attempts in Prometheus, labelled by outcome
// and provider.
type MetricsRecorder struct{}

// NewMetricsRecorder registers the attempts counter and returns a
// recorder feeding it.
func NewMetricsRecorder() MetricsRecorder {
	if attemptsCounter == nil {
		attemptsCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membergate_login_attempts_total",
				Help: "Number of login attempts, differentiated by outcome and provider.",
			},
			[]string{"outcome", "auth_type"},
		)
	}

	return MetricsRecorder{}
}

// Record implements Recorder.
func (MetricsRecorder) Record(attempt Attempt) {
	attemptsCounter.WithLabelValues(attempt.Outcome, attempt.AuthType).Inc()
}

// DBRecorder persists attempts to the login_attempts table so the
// dashboard can show members their sign in history.
type DBRecorder struct {
	db *gorm.DB
}

// NewDBRecorder creates a recorder writing to the given database.
func NewDBRecorder(db *gorm.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

// Record implements Recorder.
func (r *DBRecorder) Record(attempt Attempt) {
	row := models.LoginAttempt{
		ID:         uuid.NewString(),
		Identifier: attempt.Identifier,
		Outcome:    attempt.Outcome,
		Reason:     attempt.Reason,
		AuthType:   attempt.AuthType,
		RemoteIP:   attempt.RemoteIP,
		UserAgent:  attempt.UserAgent,
		UserID:     attempt.UserID,
		CreatedAt:  attempt.When,
	}

	if err := r.db.Create(&row).Error; err != nil {
		log.Error().Err(err).Str("identifier", attempt.Identifier).
			Msg("failed to persist login attempt")
	}
}
