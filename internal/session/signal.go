package session

import (
	"fmt"
	"strings"

	"github.com/sadopc/pgtop/internal/view"
)

// SignalMask selects the backend classes hit by a group cancel or
// terminate. Its text form uses one letter per class: a(ctive), i(dle),
// x (idle in transaction), w(aiting) and o(ther).
type SignalMask struct {
	Active   bool
	Idle     bool
	IdleXact bool
	Waiting  bool
	Other    bool
}

// ParseSignalMask decodes the letter form. Unknown letters are an error;
// repeats are harmless.
func ParseSignalMask(s string) (SignalMask, error) {
	var m SignalMask
	for _, r := range s {
		switch r {
		case 'a':
			m.Active = true
		case 'i':
			m.Idle = true
		case 'x':
			m.IdleXact = true
		case 'w':
			m.Waiting = true
		case 'o':
			m.Other = true
		case ' ':
		default:
			return SignalMask{}, fmt.Errorf("unknown backend class %q, want one of a i x w o", r)
		}
	}
	return m, nil
}

func (m SignalMask) String() string {
	var b strings.Builder
	for _, f := range []struct {
		on bool
		c  byte
	}{{m.Active, 'a'}, {m.Idle, 'i'}, {m.IdleXact, 'x'}, {m.Waiting, 'w'}, {m.Other, 'o'}} {
		if f.on {
			b.WriteByte(f.c)
		}
	}
	return b.String()
}

// Empty reports whether no class is selected.
func (m SignalMask) Empty() bool {
	return m == SignalMask{}
}

// Classes returns the selected classes in a i x w o order.
func (m SignalMask) Classes() []view.BackendClass {
	var out []view.BackendClass
	if m.Active {
		out = append(out, view.ClassActive)
	}
	if m.Idle {
		out = append(out, view.ClassIdle)
	}
	if m.IdleXact {
		out = append(out, view.ClassIdleXact)
	}
	if m.Waiting {
		out = append(out, view.ClassWaiting)
	}
	if m.Other {
		out = append(out, view.ClassOther)
	}
	return out
}
