package sysstat

import "time"

const sectorSize = 512

// CPUBetween returns the time share of each CPU state between two
// readings. A counter wrap or an unchanged total yields zero usage.
func CPUBetween(prev, curr CPUTimes) CPUUsage {
	total := curr.Total()
	if total <= prev.Total() {
		return CPUUsage{}
	}
	d := float64(total - prev.Total())
	pct := func(c, p uint64) float64 {
		if c < p {
			return 0
		}
		return float64(c-p) / d * 100
	}
	return CPUUsage{
		User:    pct(curr.User, prev.User),
		Nice:    pct(curr.Nice, prev.Nice),
		System:  pct(curr.System, prev.System),
		Idle:    pct(curr.Idle, prev.Idle),
		IOWait:  pct(curr.IOWait, prev.IOWait),
		IRQ:     pct(curr.IRQ, prev.IRQ),
		SoftIRQ: pct(curr.SoftIRQ, prev.SoftIRQ),
		Steal:   pct(curr.Steal, prev.Steal),
	}
}

// DiskRates matches devices by name and returns their rates over elapsed.
// Devices absent from prev are reported with zero rates.
func DiskRates(prev, curr []DiskStat, elapsed time.Duration) []DiskRate {
	secs := seconds(elapsed)
	byName := make(map[string]DiskStat, len(prev))
	for _, d := range prev {
		byName[d.Device] = d
	}

	out := make([]DiskRate, 0, len(curr))
	for _, c := range curr {
		r := DiskRate{Device: c.Device}
		p, ok := byName[c.Device]
		if !ok {
			out = append(out, r)
			continue
		}
		reads := delta(c.Reads, p.Reads)
		writes := delta(c.Writes, p.Writes)
		r.ReadsPerSec = reads / secs
		r.WritesPerSec = writes / secs
		r.ReadKBPerSec = delta(c.SectorsRead, p.SectorsRead) * sectorSize / 1024 / secs
		r.WriteKBPerSec = delta(c.SectorsWritten, p.SectorsWritten) * sectorSize / 1024 / secs
		if n := reads + writes; n > 0 {
			r.Await = (delta(c.ReadMs, p.ReadMs) + delta(c.WriteMs, p.WriteMs)) / n
		}
		r.Util = min(delta(c.IOMs, p.IOMs)/(secs*1000)*100, 100)
		out = append(out, r)
	}
	return out
}

// NetRates matches interfaces by name and returns their rates over elapsed.
func NetRates(prev, curr []NetStat, elapsed time.Duration) []NetRate {
	secs := seconds(elapsed)
	byName := make(map[string]NetStat, len(prev))
	for _, n := range prev {
		byName[n.Interface] = n
	}

	out := make([]NetRate, 0, len(curr))
	for _, c := range curr {
		r := NetRate{Interface: c.Interface}
		if p, ok := byName[c.Interface]; ok {
			r.RxBytesPerSec = delta(c.RxBytes, p.RxBytes) / secs
			r.TxBytesPerSec = delta(c.TxBytes, p.TxBytes) / secs
			r.RxPacketsPerSec = delta(c.RxPackets, p.RxPackets) / secs
			r.TxPacketsPerSec = delta(c.TxPackets, p.TxPackets) / secs
			r.ErrsPerSec = (delta(c.RxErrs, p.RxErrs) + delta(c.TxErrs, p.TxErrs)) / secs
			r.DropsPerSec = (delta(c.RxDrop, p.RxDrop) + delta(c.TxDrop, p.TxDrop)) / secs
		}
		out = append(out, r)
	}
	return out
}

// Compare derives display stats from two snapshots. With no previous
// snapshot the rates are zero and only gauges are filled in.
func Compare(prev, curr *Snapshot) Stats {
	if curr == nil {
		return Stats{}
	}
	st := Stats{Load: curr.Load, Mem: curr.Mem, Uptime: curr.Uptime}
	if prev == nil {
		st.Disks = DiskRates(nil, curr.Disks, time.Second)
		st.Nets = NetRates(nil, curr.Nets, time.Second)
		return st
	}
	elapsed := curr.Time.Sub(prev.Time)
	st.CPU = CPUBetween(prev.CPU, curr.CPU)
	st.Disks = DiskRates(prev.Disks, curr.Disks, elapsed)
	st.Nets = NetRates(prev.Nets, curr.Nets, elapsed)
	return st
}

// delta treats a counter that went backwards as reset.
func delta(c, p uint64) float64 {
	if c < p {
		return 0
	}
	return float64(c - p)
}

// seconds floors elapsed at one millisecond to keep rates finite.
func seconds(elapsed time.Duration) float64 {
	if elapsed < time.Millisecond {
		elapsed = time.Millisecond
	}
	return elapsed.Seconds()
}
