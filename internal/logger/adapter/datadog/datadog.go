// Package datadog ships log events to the datadog logs intake.
//
// The Writer plugs into logger.Init as an additional writer. Events are
// forwarded by a background goroutine so the hot path never waits on
// the network, a full buffer drops events instead of blocking.
package datadog

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/go-membergate/membergate/internal/logger"
)

const (
	defaultBufferSize = 256
	defaultTimeout    = 5 * time.Second
)

// Writer forwards each log line to the datadog logs intake.
type Writer struct {
	api      *datadogV2.LogsApi
	cfg      logger.DataDog
	hostname string
	lines    chan string
	done     chan struct{}
	closer   sync.Once
}

// New creates a Writer and starts its shipping goroutine.
func New(cfg logger.DataDog) *Writer {
	w := &Writer{
		api:   datadogV2.NewLogsApi(datadog.NewAPIClient(datadog.NewConfiguration())),
		cfg:   cfg,
		lines: make(chan string, defaultBufferSize),
		done:  make(chan struct{}),
	}

	w.hostname, _ = os.Hostname()

	go w.ship()

	return w
}

// Write implements io.Writer. It never blocks, when the shipping buffer
// is full the event is dropped.
func (w *Writer) Write(p []byte) (int, error) {
	select {
	case w.lines <- string(p):
	default: // buffer full, drop the event
	}

	return len(p), nil
}

// Close drains buffered events and stops the shipping goroutine.
func (w *Writer) Close() error {
	w.closer.Do(func() { close(w.lines) })
	<-w.done

	return nil
}

func (w *Writer) ship() {
	defer close(w.done)

	for line := range w.lines {
		w.submit(line)
	}
}

func (w *Writer) submit(line string) {
	timeout := w.cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx = context.WithValue(ctx, datadog.ContextAPIKeys, map[string]datadog.APIKey{
		"apiKeyAuth": {Key: w.cfg.APIKey},
	})

	if w.cfg.Site != "" {
		ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{
			"site": w.cfg.Site,
		})
	}

	items := []datadogV2.HTTPLogItem{{
		Ddsource: datadog.PtrString("membergate"),
		Ddtags:   datadog.PtrString(w.cfg.Tags),
		Hostname: datadog.PtrString(w.hostname),
		Message:  line,
		Service:  datadog.PtrString(w.cfg.ServiceName),
	}}

	// never feed submit errors back into the logger, that would loop
	if _, _, err := w.api.SubmitLog(ctx, items); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "datadog: could not submit log: %v\n", err)
	}
}
