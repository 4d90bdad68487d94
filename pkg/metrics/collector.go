package metrics

import (
	"context"
	"time"

	"github.com/sitewatch/platform/pkg/durastore"
	"github.com/sitewatch/platform/pkg/sharedstore"
)

// Collector periodically refreshes the coordinator's gauge metrics
// from the shared store and durable store, which otherwise only move
// on request/tick boundaries.
type Collector struct {
	shared  sharedstore.Store
	durable durastore.Store
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector over the coordinator's stores.
func NewCollector(shared sharedstore.Store, durable durastore.Store) *Collector {
	return &Collector{
		shared:  shared,
		durable: durable,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15-second interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectWorkerPresence(ctx)
}

func (c *Collector) collectWorkerPresence(ctx context.Context) {
	workers, err := c.shared.ListPresentWorkers(ctx)
	if err != nil {
		return
	}
	WorkersPresent.Set(float64(len(workers)))
}
