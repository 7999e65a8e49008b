// Package errorbus implements a process-wide error bus: components hold a
// Reporter bound to their component name, and a single collector task logs
// each report with structured fields while tracking a per-component rate.
package errorbus

import (
	"sync"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/metrics"
	"github.com/rs/zerolog"
)

const (
	defaultBufferSize = 100
	rateWindow        = time.Minute
	rateWarnThreshold = 10
)

// Report is one error event submitted to the bus.
type Report struct {
	Component string
	Err       error
	Message   string
	Timestamp time.Time
}

// Bus collects Reports from any number of Reporters and logs them on a
// single collector task.
type Bus struct {
	ch     chan Report
	stopCh chan struct{}
	doneCh chan struct{}
	logger zerolog.Logger

	mu       sync.Mutex
	counters map[string]*componentCounter
}

type componentCounter struct {
	total       int64
	lastTs      time.Time
	windowStart time.Time
	windowCount int
}

// NewBus constructs a Bus. bufferSize <= 0 selects a default of 100.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		ch:       make(chan Report, bufferSize),
		logger:   log.WithComponent("errorbus"),
		counters: make(map[string]*componentCounter),
	}
}

// Reporter is a sender bound to one component name.
type Reporter struct {
	bus       *Bus
	component string
}

// Reporter returns a sender bound to component.
func (b *Bus) Reporter(component string) Reporter {
	return Reporter{bus: b, component: component}
}

// Report submits one error event, blocking only until the bus shuts down.
func (r Reporter) Report(err error, message string) {
	report := Report{Component: r.component, Err: err, Message: message, Timestamp: time.Now()}
	select {
	case r.bus.ch <- report:
	case <-r.bus.stopCh:
	}
}

// Start launches the collector task.
func (b *Bus) Start() {
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	go b.run()
}

// Stop signals the collector to exit and waits for it to do so.
func (b *Bus) Stop() {
	if b.stopCh == nil {
		return
	}
	close(b.stopCh)
	<-b.doneCh
}

// Close closes the underlying channel, which is also a terminal condition
// for the collector (but not a valid way to stop Reporters — they should
// still be signalled via Stop).
func (b *Bus) Close() {
	close(b.ch)
}

func (b *Bus) run() {
	defer close(b.doneCh)
	for {
		select {
		case report, ok := <-b.ch:
			if !ok {
				return
			}
			b.handle(report)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bus) handle(report Report) {
	event := b.logger.Error().Str("component", report.Component).Time("timestamp", report.Timestamp)
	if report.Err != nil {
		event = event.Err(report.Err)
	}
	event.Msg(report.Message)
	metrics.ErrorReportsTotal.WithLabelValues(report.Component).Inc()

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.counters[report.Component]
	if !ok {
		c = &componentCounter{windowStart: report.Timestamp}
		b.counters[report.Component] = c
	}
	c.total++
	c.lastTs = report.Timestamp
	if report.Timestamp.Sub(c.windowStart) > rateWindow {
		c.windowStart = report.Timestamp
		c.windowCount = 0
	}
	c.windowCount++
	if c.windowCount > rateWarnThreshold {
		b.logger.Warn().Str("component", report.Component).Int("count_in_window", c.windowCount).Msg("error rate exceeds 10/min")
	}
}

// Stats returns a snapshot of total/last_ts for a component, for tests and
// diagnostics.
func (b *Bus) Stats(component string) (total int64, lastTs time.Time, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, found := b.counters[component]
	if !found {
		return 0, time.Time{}, false
	}
	return c.total, c.lastTs, true
}
