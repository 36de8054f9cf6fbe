package audit

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Dispatcher fans attempt records out to the configured recorders.
//
// Notify is fire and forget: each recorder runs on its own goroutine
// and a panicking recorder is contained and logged. A nil *Dispatcher
// is valid and drops everything, so callers never have to check.
type Dispatcher struct {
	recorders []Recorder

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher for the given recorders. Nil
// recorders are skipped.
func NewDispatcher(recorders ...Recorder) *Dispatcher {
	d := &Dispatcher{}

	for _, r := range recorders {
		if r != nil {
			d.recorders = append(d.recorders, r)
		}
	}

	return d
}

// Notify hands the attempt to every recorder and returns immediately.
func (d *Dispatcher) Notify(attempt Attempt) {
	if d == nil {
		return
	}

	for _, r := range d.recorders {
		d.wg.Add(1)

		go func(r Recorder) {
			defer d.wg.Done()

			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Str("identifier", attempt.Identifier).
						Msg("audit recorder panicked")
				}
			}()

			r.Record(attempt)
		}(r)
	}
}

// Wait blocks until all in flight records are handed off. Used by
// graceful shutdown and by tests.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}

	d.wg.Wait()
}
