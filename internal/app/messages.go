package app

import (
	"time"

	"github.com/sadopc/pgtop/internal/session"
)

// Messages private to the root model. The ones shared with ui packages
// live in internal/msg.

// actionFunc builds an operator action against the foreground tab. It runs
// when the operator confirms, so the request binds the connection that is
// current at that moment.
type actionFunc func(*session.Controller) (session.ActionRequest, error)

// actionPlanMsg asks the root model to build and run an action.
type actionPlanMsg struct {
	plan actionFunc
}

// passwordMsg answers the password prompt of tab tabID.
type passwordMsg struct {
	tabID    uint64
	password string
}

// filterMsg sets the filter of column col on the foreground view.
type filterMsg struct {
	col     int
	pattern string
}

// minAgeMsg sets the foreground tab's minimum age.
type minAgeMsg struct {
	age string
}

// signalMaskMsg sets the foreground tab's group signal mask.
type signalMaskMsg struct {
	mask string
}

// intervalMsg changes the polling interval.
type intervalMsg struct {
	interval time.Duration
}
