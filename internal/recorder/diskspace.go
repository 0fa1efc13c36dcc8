package recorder

import "github.com/shirou/gopsutil/v3/disk"

// minDiskFreeRatio is the threshold below which startChunk logs a warning.
// Recording is never blocked on it — spec.md §5 describes disk pressure as
// something an operator is alerted to, not something this module enforces.
const minDiskFreeRatio = 0.05

// diskFreeRatio reports the fraction of free space remaining on the
// filesystem backing path, grounded on
// madpsy-ka9q_ubersdr/prometheus.go's use of gopsutil for resource gauges.
func diskFreeRatio(path string) (float64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return 1 - usage.UsedPercent/100, nil
}
