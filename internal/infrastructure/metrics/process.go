// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package metrics

import (
	"runtime"

	"github.com/prometheus/procfs"

	"github.com/cityevents/cityevents-api/internal/domain/entities"
)

// userHZ is the clock tick rate of /proc/<pid>/stat. procfs assumes the same value.
const userHZ = 100

// microsPerTick converts clock ticks to microseconds.
const microsPerTick = 1_000_000 / userHZ

// ProcfsReader reads the resident set and CPU time from /proc, falling back to
// runtime statistics where procfs is unavailable (non-Linux hosts, sandboxes).
type ProcfsReader struct{}

// NewProcfsReader returns a contracts.ProcessReader backed by procfs.
func NewProcfsReader() *ProcfsReader {
	return &ProcfsReader{}
}

// ReadMemory implements contracts.ProcessReader.
func (ProcfsReader) ReadMemory() (entities.MemoryUsage, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	usage := entities.MemoryUsage{
		HeapTotal: ms.HeapSys,
		HeapUsed:  ms.HeapAlloc,
		External:  ms.Sys - ms.HeapSys,
		RSS:       ms.Sys,
		Source:    "runtime",
	}

	if stat, err := selfStat(); err == nil {
		usage.RSS = uint64(stat.ResidentMemory())
		usage.Source = "procfs"
	}
	return usage, nil
}

// ReadCPU implements contracts.ProcessReader.
func (ProcfsReader) ReadCPU() (entities.CPUUsage, error) {
	stat, err := selfStat()
	if err != nil {
		return entities.CPUUsage{}, err
	}
	return cpuFromTicks(stat.UTime, stat.STime), nil
}

func cpuFromTicks(utime, stime uint) entities.CPUUsage {
	return entities.CPUUsage{
		User:      uint64(utime) * microsPerTick,
		System:    uint64(stime) * microsPerTick,
		Available: true,
	}
}

func selfStat() (procfs.ProcStat, error) {
	proc, err := procfs.Self()
	if err != nil {
		return procfs.ProcStat{}, err
	}
	return proc.Stat()
}
