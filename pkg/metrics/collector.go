package metrics

import (
	"sync"
	"time"
)

// PageSource is a paginated store
type PageSource interface {
	Page() int
	Pages() int
}

// Collector samples console state that is not updated at the point of change
type Collector struct {
	interval time.Duration

	mu      sync.Mutex
	stores  map[string]PageSource
	dropped func() uint64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a collector sampling every interval (15s when zero)
func NewCollector(interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		interval: interval,
		stores:   make(map[string]PageSource),
		stopCh:   make(chan struct{}),
	}
}

// AddStore samples the page position of a store
func (c *Collector) AddStore(resource string, src PageSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores[resource] = src
}

// SetDropped samples a notification drop counter
func (c *Collector) SetDropped(fn func() uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped = fn
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Collect takes one sample
func (c *Collector) Collect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for resource, src := range c.stores {
		StorePage.WithLabelValues(resource).Set(float64(src.Page()))
		StorePages.WithLabelValues(resource).Set(float64(src.Pages()))
	}

	if c.dropped != nil {
		NotificationsDropped.Set(float64(c.dropped()))
	}
}
