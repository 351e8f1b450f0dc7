package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pgtop/internal/config"
	"github.com/sadopc/pgtop/internal/session"
	"github.com/sadopc/pgtop/internal/ui/dialog"
	"github.com/sadopc/pgtop/internal/view"
)

// promptKind says what the open prompt is asking for.
type promptKind int

const (
	promptNone promptKind = iota
	promptFilter
	promptMinAge
	promptSignals
	promptInterval
	promptPID
	promptPassword
)

func (m *Model) showPrompt(kind promptKind, p dialog.Prompt) tea.Cmd {
	m.prompt = p
	m.promptFor = kind
	m.prompt.SetSize(m.width, m.height)
	return m.prompt.Show()
}

func (m *Model) showConfirm(title, body string, plan actionFunc) {
	m.confirm = dialog.Confirm(title, body, func() tea.Msg { return actionPlanMsg{plan: plan} })
	m.confirm.SetSize(m.width, m.height)
	m.confirm.Show()
}

func (m *Model) askPassword(tabID uint64, p string) tea.Cmd {
	m.pwTab = tabID
	pr := dialog.NewPrompt("Password", "for "+p, "", nil, func(s string) tea.Msg {
		return passwordMsg{tabID: tabID, password: s}
	})
	pr.Masked()
	return m.showPrompt(promptPassword, pr)
}

func (m *Model) askFilter(t *session.Tab) tea.Cmd {
	vs := t.ViewState(t.Current)
	col := vs.SortKey
	g := m.results.Grid()
	if col < 0 || col >= g.NumCols() {
		return m.status("pick a sort column to filter on", true)
	}
	p := dialog.NewPrompt("Filter "+g.Columns[col], "rows whose cell contains the text; empty clears", vs.Filters[col], nil,
		func(s string) tea.Msg { return filterMsg{col: col, pattern: s} })
	return m.showPrompt(promptFilter, p)
}

func (m *Model) askMinAge(t *session.Tab) tea.Cmd {
	p := dialog.NewPrompt("Minimum age", "HH:MM:SS[.ms], used by the activity view and group signals", t.MinAge,
		view.ValidateMinAge,
		func(s string) tea.Msg { return minAgeMsg{age: s} })
	return m.showPrompt(promptMinAge, p)
}

func (m *Model) askSignals(t *session.Tab) tea.Cmd {
	p := dialog.NewPrompt("Group signal mask",
		"a: active, i: idle, x: idle in transaction, w: waiting, o: other", t.Signals.String(),
		func(s string) error {
			_, err := session.ParseSignalMask(s)
			return err
		},
		func(s string) tea.Msg { return signalMaskMsg{mask: s} })
	return m.showPrompt(promptSignals, p)
}

func (m *Model) askInterval() tea.Cmd {
	hint := fmt.Sprintf("seconds between refreshes, %d-%d", config.MinInterval, config.MaxInterval)
	p := dialog.NewPrompt("Refresh interval", hint, strconv.Itoa(int(m.interval/time.Second)),
		validateInterval,
		func(s string) tea.Msg {
			n, _ := strconv.Atoi(strings.TrimSpace(s))
			return intervalMsg{interval: time.Duration(n) * time.Second}
		})
	return m.showPrompt(promptInterval, p)
}

func validateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < config.MinInterval || n > config.MaxInterval {
		return fmt.Errorf("interval must be a whole number of seconds between %d and %d", config.MinInterval, config.MaxInterval)
	}
	return nil
}

// askPID asks which backend to signal, offering the pid under the cursor
// on views that list backends.
func (m *Model) askPID(t *session.Tab, sig view.Signal) tea.Cmd {
	initial := ""
	if view.HasPID(t.Current) {
		if row := m.results.SelectedRow(); len(row) > 0 {
			initial = row[0]
		}
	}
	title := "Cancel backend"
	if sig == view.Terminate {
		title = "Terminate backend"
	}
	p := dialog.NewPrompt(title, "backend pid", initial, validatePID, func(s string) tea.Msg {
		pid, _ := strconv.Atoi(strings.TrimSpace(s))
		return actionPlanMsg{plan: func(c *session.Controller) (session.ActionRequest, error) {
			return c.SignalBackend(sig, pid)
		}}
	})
	return m.showPrompt(promptPID, p)
}

func validatePID(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", session.ErrBadPID, s)
	}
	return nil
}

func (m *Model) confirmGroup(t *session.Tab, sig view.Signal) tea.Cmd {
	if t.Signals.Empty() {
		return m.status("signal mask is empty, set it with m", true)
	}
	title := "Cancel backends"
	if sig == view.Terminate {
		title = "Terminate backends"
	}
	body := fmt.Sprintf("Send %s to every backend of class %q older than %s on %s?",
		sig, t.Signals.String(), t.MinAge, t.Params.String())
	m.showConfirm(title, body, func(c *session.Controller) (session.ActionRequest, error) {
		return c.SignalGroup(sig)
	})
	return nil
}
