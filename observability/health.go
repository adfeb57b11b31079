// Package observability reports process-level health figures.
package observability

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

// SelfStats holds resource usage of the running process.
type SelfStats struct {
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
}

// CollectSelfStats reads memory and CPU usage for the current process.
func CollectSelfStats() (SelfStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return SelfStats{}, err
	}
	memory, err := p.MemoryInfo()
	if err != nil {
		return SelfStats{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return SelfStats{}, err
	}
	return SelfStats{RSSBytes: memory.RSS, CPUPercent: cpu}, nil
}
