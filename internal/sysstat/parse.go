package sysstat

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseLoadAvg parses /proc/loadavg.
func ParseLoadAvg(content string) (LoadAvg, error) {
	var la LoadAvg
	fields := strings.Fields(content)
	if len(fields) < 3 {
		return la, fmt.Errorf("invalid /proc/loadavg: %q", content)
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return la, fmt.Errorf("failed to parse loadavg field %d: %w", i, err)
		}
		la[i] = v
	}
	return la, nil
}

// ParseCPU parses the aggregate cpu line of /proc/stat.
func ParseCPU(content string) (CPUTimes, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return CPUTimes{}, fmt.Errorf("invalid /proc/stat cpu line: %s", line)
		}
		vals := make([]uint64, 8)
		for i := 1; i < len(fields) && i <= len(vals); i++ {
			v, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return CPUTimes{}, fmt.Errorf("failed to parse cpu field %d: %w", i, err)
			}
			vals[i-1] = v
		}
		return CPUTimes{
			User:    vals[0],
			Nice:    vals[1],
			System:  vals[2],
			Idle:    vals[3],
			IOWait:  vals[4],
			IRQ:     vals[5],
			SoftIRQ: vals[6],
			Steal:   vals[7],
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return CPUTimes{}, fmt.Errorf("error scanning /proc/stat: %w", err)
	}
	return CPUTimes{}, fmt.Errorf("no cpu line in /proc/stat")
}

// ParseMemInfo parses /proc/meminfo. Values stay in kibibytes.
func ParseMemInfo(content string) (Memory, error) {
	var m Memory
	found := 0
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		v, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(parts[0], ":") {
		case "MemTotal":
			m.Total = v
			found++
		case "MemFree":
			m.Free = v
			found++
		case "MemAvailable":
			m.Available = v
		case "Buffers":
			m.Buffers = v
			found++
		case "Cached":
			m.Cached = v
		case "Dirty":
			m.Dirty = v
		case "Writeback":
			m.Writeback = v
		case "SwapTotal":
			m.SwapTotal = v
		case "SwapFree":
			m.SwapFree = v
		}
	}
	if err := scanner.Err(); err != nil {
		return m, fmt.Errorf("error scanning /proc/meminfo: %w", err)
	}
	if found < 3 {
		return m, fmt.Errorf("insufficient memory info found in /proc/meminfo")
	}
	return m, nil
}

// ParseDiskStats parses /proc/diskstats. Devices that never did any I/O
// are skipped.
func ParseDiskStats(content string) ([]DiskStat, error) {
	var out []DiskStat
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		f := strings.Fields(scanner.Text())
		if len(f) < 14 {
			continue
		}
		vals := make([]uint64, 11)
		for i := range vals {
			v, err := strconv.ParseUint(f[i+3], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse diskstats field %d for %s: %w", i+3, f[2], err)
			}
			vals[i] = v
		}
		d := DiskStat{
			Device:         f[2],
			Reads:          vals[0],
			ReadsMerged:    vals[1],
			SectorsRead:    vals[2],
			ReadMs:         vals[3],
			Writes:         vals[4],
			WritesMerged:   vals[5],
			SectorsWritten: vals[6],
			WriteMs:        vals[7],
			InFlight:       vals[8],
			IOMs:           vals[9],
			WeightedIOMs:   vals[10],
		}
		if d.Reads == 0 && d.Writes == 0 {
			continue
		}
		out = append(out, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning /proc/diskstats: %w", err)
	}
	return out, nil
}

// ParseNetDev parses /proc/net/dev.
func ParseNetDev(content string) ([]NetStat, error) {
	var out []NetStat
	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum <= 2 {
			continue
		}
		parts := strings.SplitN(scanner.Text(), ":", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		f := strings.Fields(parts[1])
		if len(f) < 16 {
			continue
		}
		vals := make([]uint64, 16)
		for i := range vals {
			v, err := strconv.ParseUint(f[i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse net/dev field %d for %s: %w", i, name, err)
			}
			vals[i] = v
		}
		out = append(out, NetStat{
			Interface: name,
			RxBytes:   vals[0],
			RxPackets: vals[1],
			RxErrs:    vals[2],
			RxDrop:    vals[3],
			TxBytes:   vals[8],
			TxPackets: vals[9],
			TxErrs:    vals[10],
			TxDrop:    vals[11],
			Colls:     vals[13],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning /proc/net/dev: %w", err)
	}
	return out, nil
}

// ParseUptime parses /proc/uptime.
func ParseUptime(content string) (time.Duration, error) {
	fields := strings.Fields(content)
	if len(fields) < 1 {
		return 0, fmt.Errorf("invalid /proc/uptime: %q", content)
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse uptime: %w", err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
