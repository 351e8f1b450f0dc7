package msg

import (
	"errors"
	"testing"
	"time"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/session"
)

func TestOverlay_String(t *testing.T) {
	tests := []struct {
		o    Overlay
		want string
	}{
		{OverlayNone, "none"},
		{OverlayHelp, "help"},
		{OverlayConnMgr, "connections"},
		{OverlayPicker, "picker"},
		{OverlayPrompt, "prompt"},
		{OverlayConfirm, "confirm"},
		{OverlayQuery, "query"},
		{Overlay(99), "none"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Overlay(%d).String() = %q, want %q", tt.o, got, tt.want)
		}
	}
}

func TestMessagesCarryPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := TickMsg{Seq: 7, At: at}
	if tick.Seq != 7 || !tick.At.Equal(at) {
		t.Errorf("TickMsg = %+v", tick)
	}

	poll := PollMsg{Result: session.PollResult{TabID: 3, Gen: 9}}
	if poll.Result.TabID != 3 || poll.Result.Gen != 9 {
		t.Errorf("PollMsg = %+v", poll)
	}

	errBoom := errors.New("boom")
	conn := ConnectMsg{Index: 2, Result: session.ConnectResult{Err: errBoom}}
	if conn.Index != 2 || !errors.Is(conn.Result.Err, errBoom) {
		t.Errorf("ConnectMsg = %+v", conn)
	}

	act := ActionMsg{Result: session.ActionResult{Kind: session.ActionReloadConf}}
	if act.Result.Kind.String() != "reload-conf" {
		t.Errorf("ActionMsg kind = %s", act.Result.Kind)
	}

	open := OpenTabMsg{Params: adapter.Params{Host: "db1", Port: 5433}}
	if open.Params.String() != "db1:5433" {
		t.Errorf("OpenTabMsg params = %s", open.Params)
	}
}

func TestStatusMsg_Defaults(t *testing.T) {
	var m StatusMsg
	if m.IsError || m.Duration != 0 || m.Text != "" {
		t.Errorf("zero StatusMsg = %+v", m)
	}
}
