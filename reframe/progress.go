package reframe

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// SmoothingFactor weights the previously reported rate against the current
// one when the rate is smoothed.
const SmoothingFactor = 0.05

// ProgressTracker reports progress of a long running job to a writer.
// The reported rate is exponentially smoothed and drives the ETA.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	rate           float64 // smoothed items per second
	started        bool
	now            func() time.Time
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for total items, reporting every
// reportInterval items.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
		now:            time.Now,
	}
}

// Start begins tracking.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.started = true
	p.current = 0
	p.lastReported = 0
	p.rate = 0
}

// Increment adds delta processed items, reporting when an interval is crossed.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+delta, p.total)
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish marks every item processed and prints the final report.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return p.now().Sub(p.startTime)
}

// Rate returns the smoothed rate as of the last report, in items per second.
func (p *ProgressTracker) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// ETA estimates the time left from the smoothed rate. Zero when the rate is
// not known yet.
func (p *ProgressTracker) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eta()
}

func (p *ProgressTracker) eta() time.Duration {
	if p.rate <= 0 {
		return 0
	}
	seconds := float64(p.total-p.current) / p.rate
	return time.Duration(seconds * float64(time.Second)).Round(time.Second)
}

func (p *ProgressTracker) report() {
	elapsed := p.now().Sub(p.startTime).Seconds()
	if elapsed > 0 {
		instant := float64(p.current) / elapsed
		if p.rate == 0 {
			p.rate = instant
		} else {
			p.rate = SmoothingFactor*p.rate + (1-SmoothingFactor)*instant
		}
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f sentences/s - ETA %s",
		p.current, p.total, percentage, p.rate, p.eta())
}
