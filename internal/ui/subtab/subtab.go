// Package subtab renders the auxiliary panel shown below the grid: per
// device disk I/O, per interface network I/O or the tail of the server log.
package subtab

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/sadopc/pgtop/internal/session"
	"github.com/sadopc/pgtop/internal/sysstat"
	"github.com/sadopc/pgtop/internal/theme"
)

// Height is the number of lines a subtab occupies, border and title
// included.
const Height = session.LogTailLines + 2

// Render draws kind from the frame's data in width columns. It returns ""
// for session.SubtabNone.
func Render(kind session.Subtab, f *session.Frame, width int) string {
	th := theme.Current
	var title string
	var body []string
	switch kind {
	case session.SubtabDisk:
		title = "disk I/O"
		body = diskLines(f)
	case session.SubtabNet:
		title = "network I/O"
		body = netLines(f)
	case session.SubtabLog:
		title = "server log"
		body = logLines(f)
	default:
		return ""
	}

	rows := Height - 2
	if len(body) > rows {
		body = body[:rows]
	}
	for len(body) < rows {
		body = append(body, "")
	}
	for i, l := range body {
		if width > 0 && runewidth.StringWidth(l) > width {
			body[i] = runewidth.Truncate(l, width, "…")
		}
	}
	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{th.SubtabTitle.Render(title)}, body...)...)
	return th.SubtabBorder.Width(max(width, 0)).Render(content)
}

const diskHeader = "%-12s %10s %10s %12s %12s %9s %7s"

func diskLines(f *session.Frame) []string {
	if f == nil || f.Host == nil {
		return []string{unavailable(f)}
	}
	out := []string{fmt.Sprintf(diskHeader, "device", "r/s", "w/s", "rkB/s", "wkB/s", "await", "%util")}
	for _, d := range f.Host.Disks {
		out = append(out, diskRow(d))
	}
	return out
}

func diskRow(d sysstat.DiskRate) string {
	return fmt.Sprintf("%-12s %10.2f %10.2f %12.2f %12.2f %9.2f %7.2f",
		d.Device, d.ReadsPerSec, d.WritesPerSec, d.ReadKBPerSec, d.WriteKBPerSec, d.Await, d.Util)
}

const netHeader = "%-12s %11s %11s %9s %9s %8s %8s"

func netLines(f *session.Frame) []string {
	if f == nil || f.Host == nil {
		return []string{unavailable(f)}
	}
	out := []string{fmt.Sprintf(netHeader, "interface", "rx/s", "tx/s", "rxpkt/s", "txpkt/s", "err/s", "drop/s")}
	for _, n := range f.Host.Nets {
		out = append(out, netRow(n))
	}
	return out
}

func netRow(n sysstat.NetRate) string {
	return fmt.Sprintf(netHeader, n.Interface,
		humanize.IBytes(uint64(n.RxBytesPerSec)), humanize.IBytes(uint64(n.TxBytesPerSec)),
		fmt.Sprintf("%.1f", n.RxPacketsPerSec), fmt.Sprintf("%.1f", n.TxPacketsPerSec),
		fmt.Sprintf("%.1f", n.ErrsPerSec), fmt.Sprintf("%.1f", n.DropsPerSec))
}

func logLines(f *session.Frame) []string {
	if f == nil {
		return []string{"waiting for data..."}
	}
	if f.LogErr != nil {
		return []string{"log unavailable: " + f.LogErr.Error()}
	}
	if len(f.Log) == 0 {
		return []string{"(log is empty)"}
	}
	out := make([]string, 0, len(f.Log))
	for _, l := range f.Log {
		out = append(out, strings.ReplaceAll(l, "\t", "    "))
	}
	return out
}

func unavailable(f *session.Frame) string {
	if f != nil && f.HostErr != nil {
		return "host statistics unavailable: " + f.HostErr.Error()
	}
	return "host statistics unavailable"
}
