// Package sysstat reads host metrics from procfs, either directly or through
// the monitored server, and turns successive readings into rates.
package sysstat

import "time"

// ClockTicks is USER_HZ, the unit of /proc/stat counters on Linux.
const ClockTicks = 100

// CPUTimes are the cumulative jiffy counters of the aggregate cpu line.
type CPUTimes struct {
	User, Nice, System, Idle, IOWait, IRQ, SoftIRQ, Steal uint64
}

// Total sums every counter.
func (c CPUTimes) Total() uint64 {
	return c.User + c.Nice + c.System + c.Idle + c.IOWait + c.IRQ + c.SoftIRQ + c.Steal
}

// CPUUsage is the share of time spent in each state between two readings,
// in percent.
type CPUUsage struct {
	User, Nice, System, Idle, IOWait, IRQ, SoftIRQ, Steal float64
}

// LoadAvg holds the 1, 5 and 15 minute load averages.
type LoadAvg [3]float64

// Memory is a subset of /proc/meminfo in kibibytes.
type Memory struct {
	Total, Free, Available, Buffers, Cached, Dirty, Writeback uint64

	SwapTotal, SwapFree uint64
}

// Used is memory that is neither free nor page cache.
func (m Memory) Used() uint64 {
	used := m.Free + m.Buffers + m.Cached
	if used > m.Total {
		return 0
	}
	return m.Total - used
}

// SwapUsed is swap in use.
func (m Memory) SwapUsed() uint64 {
	if m.SwapFree > m.SwapTotal {
		return 0
	}
	return m.SwapTotal - m.SwapFree
}

// DiskStat is one line of /proc/diskstats.
type DiskStat struct {
	Device string

	Reads, ReadsMerged, SectorsRead, ReadMs uint64

	Writes, WritesMerged, SectorsWritten, WriteMs uint64

	InFlight, IOMs, WeightedIOMs uint64
}

// DiskRate is per-second disk activity between two readings.
type DiskRate struct {
	Device        string
	ReadsPerSec   float64
	WritesPerSec  float64
	ReadKBPerSec  float64
	WriteKBPerSec float64
	// Await is the mean time per completed request in milliseconds.
	Await float64
	// Util is the share of wall time the device was busy, in percent.
	Util float64
}

// NetStat is one interface line of /proc/net/dev.
type NetStat struct {
	Interface string

	RxBytes, RxPackets, RxErrs, RxDrop uint64

	TxBytes, TxPackets, TxErrs, TxDrop, Colls uint64
}

// NetRate is per-second interface activity between two readings.
type NetRate struct {
	Interface       string
	RxBytesPerSec   float64
	TxBytesPerSec   float64
	RxPacketsPerSec float64
	TxPacketsPerSec float64
	ErrsPerSec      float64
	DropsPerSec     float64
}

// Snapshot is one reading of every supported proc file.
type Snapshot struct {
	Time   time.Time
	CPU    CPUTimes
	Load   LoadAvg
	Mem    Memory
	Disks  []DiskStat
	Nets   []NetStat
	Uptime time.Duration
}

// Stats are the rates derived from two snapshots, ready for display.
type Stats struct {
	CPU    CPUUsage
	Load   LoadAvg
	Mem    Memory
	Disks  []DiskRate
	Nets   []NetRate
	Uptime time.Duration
}
