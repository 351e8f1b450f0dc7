// Package header renders the summary block above the grid: host load, CPU
// and memory on the left, server activity on the right.
package header

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/pgtop/internal/session"
	"github.com/sadopc/pgtop/internal/sysstat"
	"github.com/sadopc/pgtop/internal/theme"
	"github.com/sadopc/pgtop/internal/view"
)

// Height is the number of lines Render produces.
const Height = 4

// Info is everything the header shows for one frame.
type Info struct {
	Conn    string
	State   string
	Now     time.Time
	Server  session.ServerInfo
	Summary session.Summary
	// Host is nil when host metrics are unavailable.
	Host *sysstat.Stats
}

// Render lays the header out in width columns.
func Render(in Info, width int) string {
	th := theme.Current
	left := []string{
		hostLine(in, th),
		cpuLine(in.Host, th),
		memLine(in.Host, th),
		swapLine(in.Host, th),
	}
	right := []string{
		serverLine(in, th),
		limitsLine(in, th),
		connsLine(in.Summary, th),
		ageLine(in.Summary, th),
	}

	leftW := 0
	for _, l := range left {
		leftW = max(leftW, lipgloss.Width(l))
	}
	lines := make([]string, Height)
	for i := range lines {
		l := left[i] + strings.Repeat(" ", leftW-lipgloss.Width(left[i]))
		lines[i] = clip(l+" "+th.MutedText.Render("|")+" "+right[i], width)
	}
	return strings.Join(lines, "\n")
}

func label(th *theme.Theme, s string) string { return th.HeaderLabel.Render(s) }
func value(th *theme.Theme, s string) string { return th.HeaderValue.Render(s) }

func hostLine(in Info, th *theme.Theme) string {
	s := th.HeaderTitle.Render("pgtop") + ": " + value(th, in.Now.Format("2006-01-02 15:04:05"))
	if in.Host == nil {
		return s + ", " + label(th, "load avg: ") + value(th, "n/a")
	}
	l := in.Host.Load
	return s + ", " + label(th, "load avg: ") + value(th, fmt.Sprintf("%.2f %.2f %.2f", l[0], l[1], l[2]))
}

func cpuLine(st *sysstat.Stats, th *theme.Theme) string {
	if st == nil {
		return label(th, "%cpu: ") + value(th, "n/a")
	}
	c := st.CPU
	parts := []struct {
		v float64
		n string
	}{{c.User, "us"}, {c.System, "sy"}, {c.Nice, "ni"}, {c.Idle, "id"}, {c.IOWait, "wa"}, {c.IRQ, "hi"}, {c.SoftIRQ, "si"}, {c.Steal, "st"}}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = value(th, fmt.Sprintf("%4.1f", p.v)) + " " + label(th, p.n)
	}
	return label(th, "%cpu: ") + strings.Join(out, ", ")
}

// kib renders a /proc/meminfo value, which is in kibibytes.
func kib(n uint64) string { return humanize.IBytes(n * 1024) }

func memLine(st *sysstat.Stats, th *theme.Theme) string {
	if st == nil {
		return label(th, "mem: ") + value(th, "n/a")
	}
	m := st.Mem
	return label(th, "mem: ") +
		value(th, kib(m.Total)) + label(th, " total, ") +
		value(th, kib(m.Free)) + label(th, " free, ") +
		value(th, kib(m.Used())) + label(th, " used, ") +
		value(th, kib(m.Buffers+m.Cached)) + label(th, " buff/cache")
}

func swapLine(st *sysstat.Stats, th *theme.Theme) string {
	if st == nil {
		return label(th, "swap: ") + value(th, "n/a")
	}
	m := st.Mem
	return label(th, "swap: ") +
		value(th, kib(m.SwapTotal)) + label(th, " total, ") +
		value(th, kib(m.SwapFree)) + label(th, " free, ") +
		value(th, kib(m.SwapUsed())) + label(th, " used, ") +
		value(th, kib(m.Dirty)) + label(th, " dirty")
}

func serverLine(in Info, th *theme.Theme) string {
	s := label(th, "state ") + stateValue(in.State, th) + ": " + value(th, in.Conn)
	if in.Server.VersionNum == 0 {
		return s
	}
	s += label(th, " (ver: ") + value(th, view.FormatVersion(in.Server.VersionNum))
	if in.Summary.Uptime != "" {
		s += label(th, ", up ") + value(th, in.Summary.Uptime)
	}
	if in.Server.InRecovery {
		s += label(th, ", ") + th.HeaderWarn.Render("recovery")
	}
	return s + label(th, ")")
}

func stateValue(state string, th *theme.Theme) string {
	if state == "" {
		state = "unknown"
	}
	switch state {
	case "polling", "polling (first)", "connected":
		return value(th, "["+state+"]")
	}
	return th.HeaderWarn.Render("[" + state + "]")
}

// ratio renders n/limit and warns once n reaches 90% of the limit.
func ratio(n, limit int, th *theme.Theme) string {
	s := fmt.Sprintf("%d/%d", n, limit)
	if limit > 0 && n*10 >= limit*9 {
		return th.HeaderWarn.Render(s)
	}
	return value(th, s)
}

func limitsLine(in Info, th *theme.Theme) string {
	if !in.Summary.Valid {
		return label(th, "activity: ") + value(th, "n/a")
	}
	s := in.Summary
	return label(th, "activity: ") +
		ratio(s.Total, in.Server.MaxConnections, th) + label(th, " conns, ") +
		ratio(s.Prepared, in.Server.MaxPreparedXacts, th) + label(th, " prepared, ") +
		ratio(s.Autovacuum, in.Server.MaxAutovacuumWorkers, th) + label(th, " autovac")
}

func connsLine(s session.Summary, th *theme.Theme) string {
	if !s.Valid {
		return label(th, "conns: ") + value(th, "n/a")
	}
	waiting := value(th, humanize.Comma(int64(s.Waiting)))
	if s.Waiting > 0 {
		waiting = th.HeaderWarn.Render(humanize.Comma(int64(s.Waiting)))
	}
	return label(th, "conns: ") +
		value(th, humanize.Comma(int64(s.Idle))) + label(th, " idle, ") +
		value(th, humanize.Comma(int64(s.IdleXact))) + label(th, " idle_xact, ") +
		value(th, humanize.Comma(int64(s.Active))) + label(th, " active, ") +
		waiting + label(th, " waiting, ") +
		value(th, humanize.Comma(int64(s.Other))) + label(th, " others")
}

func ageLine(s session.Summary, th *theme.Theme) string {
	if !s.Valid {
		return label(th, "xacts: ") + value(th, "n/a")
	}
	return label(th, "xacts: ") +
		value(th, s.XactMaxTime) + label(th, " xact_maxtime, ") +
		value(th, s.QueryMaxTime) + label(th, " query_maxtime, ") +
		value(th, humanize.Comma(s.TPS)) + label(th, " tps")
}

func clip(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
