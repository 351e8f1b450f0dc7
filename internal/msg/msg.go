// Package msg holds the bubbletea messages shared between the root model
// and the ui packages.
package msg

import (
	"time"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/session"
)

// Overlay is the modal layer currently drawn over the monitor.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayConnMgr
	OverlayPicker
	OverlayPrompt
	OverlayConfirm
	OverlayQuery
)

func (o Overlay) String() string {
	switch o {
	case OverlayHelp:
		return "help"
	case OverlayConnMgr:
		return "connections"
	case OverlayPicker:
		return "picker"
	case OverlayPrompt:
		return "prompt"
	case OverlayConfirm:
		return "confirm"
	case OverlayQuery:
		return "query"
	default:
		return "none"
	}
}

// TickMsg fires when the polling interval elapses. Seq identifies the
// tick chain so a restarted chain drops the old one.
type TickMsg struct {
	Seq uint64
	At  time.Time
}

// PollMsg carries the result of one poll.
type PollMsg struct {
	Result session.PollResult
}

// ConnectMsg carries the result of a connection attempt.
type ConnectMsg struct {
	Index  int
	Result session.ConnectResult
}

// ActionMsg carries the result of an operator action.
type ActionMsg struct {
	Result session.ActionResult
}

// OpenTabMsg asks for a new tab with the given parameters.
type OpenTabMsg struct {
	Params adapter.Params
}

// SwitchTabMsg brings tab Index to the foreground.
type SwitchTabMsg struct {
	Index int
}

// CloseTabMsg closes tab Index.
type CloseTabMsg struct {
	Index int
}

// StatusMsg updates the status bar text.
type StatusMsg struct {
	Text     string
	IsError  bool
	Duration time.Duration
}

// EditorDoneMsg is sent when an external editor or pager exits.
type EditorDoneMsg struct {
	Path string
	Err  error
}

// ExportCompleteMsg is sent when export finishes.
type ExportCompleteMsg struct {
	Path     string
	RowCount int64
}

// ExportErrMsg is sent when export fails.
type ExportErrMsg struct {
	Err error
}

// BookmarksSavedMsg is sent after the bookmarks file was written.
type BookmarksSavedMsg struct {
	Path  string
	Count int
	Err   error
}
