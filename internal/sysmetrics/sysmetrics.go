// Package sysmetrics samples process CPU time and Go runtime memory use.
package sysmetrics

import (
	"runtime"
	"syscall"
	"time"
)

// Sample is a point-in-time reading of process resource usage.
type Sample struct {
	At  time.Time
	CPU time.Duration // user + system time consumed so far

	// MemoryInuse is HeapInuse plus StackInuse, in bytes: memory the runtime
	// is actively using, not address space it has merely reserved.
	MemoryInuse int64
}

// Take reads the current process usage.
func Take() Sample {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Sample{
		At:          time.Now(),
		CPU:         cpuTime(),
		MemoryInuse: int64(m.HeapInuse + m.StackInuse),
	}
}

// CPUPercent returns the CPU used between earlier and s as a percentage of
// wall time. Multi-core work can exceed 100.
func (s Sample) CPUPercent(earlier Sample) float64 {
	wall := s.At.Sub(earlier.At)
	if wall <= 0 {
		return 0
	}
	return float64(s.CPU-earlier.CPU) / float64(wall) * 100.0
}

// MemoryDelta returns the change in memory in use since earlier.
func (s Sample) MemoryDelta(earlier Sample) int64 {
	return s.MemoryInuse - earlier.MemoryInuse
}

func cpuTime() time.Duration {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	return time.Duration(rusage.Utime.Nano()) + time.Duration(rusage.Stime.Nano())
}
