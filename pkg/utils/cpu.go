package utils

import "github.com/shirou/gopsutil/cpu"

// CheckCPUUsage reports whether overall CPU load is low enough for the
// worker to admit another generation job, along with the measured usage.
// A failed or empty probe counts as busy.
func CheckCPUUsage(maxCPUUsage float64) (bool, float64) {
	usage, err := cpu.Percent(0, false)
	if err != nil || len(usage) == 0 {
		return false, 0
	}
	return usage[0] <= maxCPUUsage, usage[0]
}
