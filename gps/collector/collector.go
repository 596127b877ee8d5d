// Package collector records GPS waypoints: it pairs GPS fixes with IMU orientations, keeps the
// latest pair and periodically logs it in the form the waypoint follower reads back.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/pursuit/gps"
	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/utils"
)

const (
	// DefaultInterval is how often the latest sample is logged.
	DefaultInterval = time.Second
	// DefaultSyncSlop is the largest stamp difference of a fix and an orientation that still pair.
	DefaultSyncSlop = 100 * time.Millisecond
	// DefaultQueueSize is how many unmatched samples each stream keeps.
	DefaultQueueSize = 10
)

// Config configures a Collector. Zero values take the defaults.
type Config struct {
	Interval  time.Duration
	SyncSlop  time.Duration
	QueueSize int
}

// mailbox holds the latest sample. The lock is only held to copy the sample in or out.
type mailbox struct {
	mu     sync.Mutex
	sample gps.Sample
	full   bool
}

// put stores s unless the mailbox already holds a newer pair.
func (m *mailbox) put(s gps.Sample) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full && s.Stamp().Before(m.sample.Stamp()) {
		return false
	}
	m.sample = s
	m.full = true
	return true
}

func (m *mailbox) latest() (gps.Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sample, m.full
}

// Collector logs one waypoint line per interval once the first pair has been received.
type Collector struct {
	cfg    Config
	clk    clock.Clock
	logger logging.Logger
	sync   *Synchronizer
	box    mailbox

	mu      sync.Mutex
	index   int
	workers utils.StoppableWorkers
}

// New returns a collector that is not yet logging; call Start.
func New(cfg Config, clk clock.Clock, logger logging.Logger) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SyncSlop <= 0 {
		cfg.SyncSlop = DefaultSyncSlop
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Collector{
		cfg:    cfg,
		clk:    clk,
		logger: logger,
		sync:   NewSynchronizer(cfg.SyncSlop, cfg.QueueSize),
	}
}

// AddFix offers a GPS fix for pairing.
func (c *Collector) AddFix(f gps.Fix) {
	if sample, ok := c.sync.AddFix(f); ok {
		c.box.put(sample)
	}
}

// AddOrientation offers an IMU orientation for pairing.
func (c *Collector) AddOrientation(o gps.Orientation) {
	if sample, ok := c.sync.AddOrientation(o); ok {
		c.box.put(sample)
	}
}

// Latest returns the most recent pair, if any was formed.
func (c *Collector) Latest() (gps.Sample, bool) {
	return c.box.latest()
}

// Start logs the latest sample every interval until Close.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workers != nil {
		return
	}
	c.workers = utils.NewStoppableWorkers(c.run)
}

func (c *Collector) run(ctx context.Context) {
	ticker := c.clk.Ticker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.LogLatest()
	}
}

// LogLatest logs the latest sample as the next numbered waypoint and returns the line. Nothing is
// logged before the first pair.
func (c *Collector) LogLatest() (string, bool) {
	sample, ok := c.box.latest()
	if !ok {
		c.logger.Debug("no synchronized gps sample yet")
		return "", false
	}
	c.mu.Lock()
	line := sample.Waypoint(c.index)
	c.index++
	c.mu.Unlock()
	c.logger.Info(line)
	return line, true
}

// Close stops logging.
func (c *Collector) Close() {
	c.mu.Lock()
	workers := c.workers
	c.workers = nil
	c.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
}
