package metrics

import (
	"context"
	"time"

	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// StatsProvider reports live media counts keyed by media type name.
type StatsProvider interface {
	MediaCounts(ctx context.Context) (map[string]int64, error)
}

// Collector periodically refreshes the library gauges.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	logger   interfaces.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration, logger interfaces.Logger) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	c.Collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Collect()
		case <-c.stopChan:
			return
		}
	}
}

// Collect refreshes the gauges once.
func (c *Collector) Collect() {
	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	counts, err := c.provider.MediaCounts(ctx)
	if err != nil {
		c.logger.Warn("Failed to collect library stats", interfaces.Error(err))
		return
	}
	for typ, n := range counts {
		MediaTotal.WithLabelValues(typ).Set(float64(n))
	}
}
