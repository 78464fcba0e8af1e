package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	perfMeter            = Meter("perf_stats")
	cpuGauge, _          = perfMeter.Float64Gauge("cpu_usage")
	memoryGauge, _       = perfMeter.Int64Gauge("allocated_mb")
	goroutineGauge, _    = perfMeter.Int64Gauge("goroutine_count")
	childProcessGauge, _ = perfMeter.Int64Gauge("child_processes")
	childMemoryGauge, _  = perfMeter.Int64Gauge("child_rss_mb")
)

const perfStatsInterval = 30 * time.Second

// childStats sums the resident memory of every direct child process, which
// are the browsers started for acquisitions.
func childStats(ctx context.Context, self *process.Process) (count int64, rssMB int64, err error) {
	children, err := self.ChildrenWithContext(ctx)
	if errors.Is(err, process.ErrorNoChildren) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	for _, child := range children {
		count++
		mem, err := child.MemoryInfoWithContext(ctx)
		if err != nil {
			continue
		}
		rssMB += int64(mem.RSS / 1_000_000)
	}
	return count, rssMB, nil
}

// InstrumentPerfStats records process level gauges every 30 seconds until ctx is done.
// Browsers that outlive their session show up as child processes.
func InstrumentPerfStats(ctx context.Context) {
	self, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Warn("failed to inspect own process, child process gauges disabled", "err", err)
	}

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(perfStatsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, time.Second*10, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.Debug("failed to read cpu usage", "err", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

				if self == nil {
					continue
				}
				count, rss, err := childStats(ctx, self)
				if err != nil {
					slog.Debug("failed to read child processes", "err", err)
					continue
				}
				childProcessGauge.Record(ctx, count)
				childMemoryGauge.Record(ctx, rss)
			case <-ctx.Done():
				return
			}
		}
	}()
}
