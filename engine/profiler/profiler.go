// Package profiler reports render throughput and memory statistics through structured logging.
package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Stats summarises the frames observed by a Profiler.
type Stats struct {
	Frames  int
	Elapsed time.Duration
	FPS     float64
	Slowest time.Duration
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	logger *slog.Logger

	frameCount     int
	totalFrames    int
	start          time.Time
	lastTime       time.Time
	lastFrameTime  time.Time
	slowest        time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	now := time.Now()
	p := &Profiler{
		mu:             &sync.Mutex{},
		logger:         slog.Default(),
		start:          now,
		lastTime:       now,
		lastFrameTime:  now,
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Tick should be called once per rendered frame.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: frames per second, heap usage, allocation rate, GC count/pause times, total memory.
//
// Parameters:
//   - frame: the frame index just produced
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(frame int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	currentTime := time.Now()
	p.frameCount++
	p.totalFrames++
	if d := currentTime.Sub(p.lastFrameTime); d > p.slowest {
		p.slowest = d
	}
	p.lastFrameTime = currentTime

	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("render throughput",
		slog.Int("frame", frame),
		slog.Float64("fps", fps),
		slog.Float64("heap_mb", allocMB),
		slog.Float64("alloc_rate_mb_s", allocRateMB),
		slog.Uint64("gc_count", uint64(gcCount)),
		slog.Uint64("gc_last_pause_us", lastPauseUs),
		slog.Uint64("gc_max_pause_us", maxPauseUs),
		slog.Float64("sys_mb", sysMB),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Stats returns the totals since the profiler was created without logging them.
//
// Returns:
//   - Stats: the accumulated statistics
func (p *Profiler) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := time.Since(p.start)
	stats := Stats{Frames: p.totalFrames, Elapsed: elapsed, Slowest: p.slowest}
	if elapsed > 0 {
		stats.FPS = float64(p.totalFrames) / elapsed.Seconds()
	}
	return stats
}

// Summary logs and returns the totals since the profiler was created.
//
// Returns:
//   - Stats: the accumulated statistics
func (p *Profiler) Summary() Stats {
	stats := p.Stats()
	p.logger.Info("render summary",
		slog.Int("frames", stats.Frames),
		slog.Duration("elapsed", stats.Elapsed),
		slog.Float64("fps", stats.FPS),
		slog.Duration("slowest_frame", stats.Slowest),
	)
	return stats
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithLogger sets the logger the profiler reports to.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerOption: functional option to set the logger
func WithLogger(logger *slog.Logger) ProfilerOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithUpdateInterval sets how often Tick logs.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerOption: functional option to set the interval
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}
