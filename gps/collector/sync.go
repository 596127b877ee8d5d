package collector

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"go.viam.com/pursuit/gps"
)

// Synchronizer pairs fixes with orientations whose stamps are within slop of each other. Each
// stream keeps at most queueSize unmatched samples, the oldest are dropped first. Samples of one
// stream are expected in stamp order.
type Synchronizer struct {
	slop      time.Duration
	queueSize int

	mu           sync.Mutex
	fixes        []gps.Fix
	orientations []gps.Orientation
}

// NewSynchronizer returns an empty synchronizer.
func NewSynchronizer(slop time.Duration, queueSize int) *Synchronizer {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Synchronizer{slop: slop, queueSize: queueSize}
}

// AddFix queues f and returns a pair if one can now be formed.
func (s *Synchronizer) AddFix(f gps.Fix) (gps.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes = bounded(append(s.fixes, f), s.queueSize)
	return s.match()
}

// AddOrientation queues o and returns a pair if one can now be formed.
func (s *Synchronizer) AddOrientation(o gps.Orientation) (gps.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orientations = bounded(append(s.orientations, o), s.queueSize)
	return s.match()
}

// Pending returns how many fixes and orientations wait for a partner.
func (s *Synchronizer) Pending() (fixes, orientations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fixes), len(s.orientations)
}

// match pairs the closest fix and orientation within slop and discards both along with
// everything queued before them. Without a pair, samples too old to ever match are discarded.
func (s *Synchronizer) match() (gps.Sample, bool) {
	bestFix, bestOrientation := -1, -1
	var best time.Duration
	for i, f := range s.fixes {
		for j, o := range s.orientations {
			d := f.Stamp.Sub(o.Stamp)
			if d < 0 {
				d = -d
			}
			if d <= s.slop && (bestFix < 0 || d < best) {
				bestFix, bestOrientation, best = i, j, d
			}
		}
	}
	if bestFix < 0 {
		s.expire()
		return gps.Sample{}, false
	}

	sample := gps.Sample{Fix: s.fixes[bestFix], Orientation: s.orientations[bestOrientation]}
	s.fixes = lo.Drop(s.fixes, bestFix+1)
	s.orientations = lo.Drop(s.orientations, bestOrientation+1)
	return sample, true
}

func (s *Synchronizer) expire() {
	if n := len(s.orientations); n != 0 {
		newest := s.orientations[n-1].Stamp
		s.fixes = lo.DropWhile(s.fixes, func(f gps.Fix) bool { return newest.Sub(f.Stamp) > s.slop })
	}
	if n := len(s.fixes); n != 0 {
		newest := s.fixes[n-1].Stamp
		s.orientations = lo.DropWhile(s.orientations, func(o gps.Orientation) bool { return newest.Sub(o.Stamp) > s.slop })
	}
}

func bounded[T any](queue []T, size int) []T {
	if len(queue) <= size {
		return queue
	}
	return lo.Drop(queue, len(queue)-size)
}
