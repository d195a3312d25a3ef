package stats

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is one advisory snapshot of host resource usage (§4.11
// "Separately probes host GPU/CPU/memory where available").
type HostStats struct {
	CPUPercent  float64
	MemPercent  float64
	MemUsedMB   uint64
	MemTotalMB  uint64
	Available   bool
}

// ProbeHost reads host CPU/memory via gopsutil, replacing the dashboard's
// hand-parsed /proc/loadavg and /proc/meminfo (SPEC_FULL.md ambient-stack
// note). This probe is advisory: any error (container without /proc,
// restricted permissions) yields Available=false rather than a panic or
// propagated error (§4.11 "must tolerate absence").
func ProbeHost() HostStats {
	var out HostStats

	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return out
	}
	out.CPUPercent = percents[0]

	vm, err := mem.VirtualMemory()
	if err != nil {
		return out
	}
	out.MemPercent = vm.UsedPercent
	out.MemUsedMB = vm.Used / (1024 * 1024)
	out.MemTotalMB = vm.Total / (1024 * 1024)
	out.Available = true
	return out
}
