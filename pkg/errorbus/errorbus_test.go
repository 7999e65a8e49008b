package errorbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportIsCountedPerComponent(t *testing.T) {
	bus := NewBus(10)
	bus.Start()
	defer bus.Stop()

	reporter := bus.Reporter("engine")
	reporter.Report(errors.New("boom"), "transition failed")
	reporter.Report(nil, "another event")

	require.Eventually(t, func() bool {
		total, _, ok := bus.Stats("engine")
		return ok && total == 2
	}, time.Second, 10*time.Millisecond)
}

func TestStatsUnknownComponent(t *testing.T) {
	bus := NewBus(10)
	bus.Start()
	defer bus.Stop()

	_, _, ok := bus.Stats("nonexistent")
	assert.False(t, ok)
}

func TestHighRateTriggersNoPanic(t *testing.T) {
	bus := NewBus(100)
	bus.Start()
	defer bus.Stop()

	reporter := bus.Reporter("hot")
	for i := 0; i < 15; i++ {
		reporter.Report(errors.New("x"), "spam")
	}

	require.Eventually(t, func() bool {
		total, _, ok := bus.Stats("hot")
		return ok && total == 15
	}, time.Second, 10*time.Millisecond)
}
