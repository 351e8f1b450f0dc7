package stat

// Status is the outcome of pushing a fresh snapshot into a Store.
type Status int

const (
	// StatusFirst means there was no previous snapshot; the new one is
	// both previous and current and must be shown raw.
	StatusFirst Status = iota
	// StatusResync means the shape changed since the previous tick; the
	// previous snapshot was replaced by the current one and this tick must
	// not be diffed.
	StatusResync
	// StatusReady means previous and current can be diffed.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusFirst:
		return "first"
	case StatusResync:
		return "resync"
	default:
		return "ready"
	}
}

// Store keeps the previous and current snapshot of one monitored view.
// It is owned by exactly one tab and is not safe for concurrent use.
type Store struct {
	prev *Grid
	curr *Grid
}

// Put installs g as the current snapshot and reports whether it can be
// diffed against the previous one. Any change in the row count or the
// column count forces a resync.
func (s *Store) Put(g *Grid) Status {
	if s.prev == nil {
		s.prev, s.curr = g, g
		return StatusFirst
	}
	if s.curr != nil && s.curr != s.prev {
		s.curr.Release()
	}
	s.curr = g
	if g.NumRows() != s.prev.NumRows() || g.NumCols() != s.prev.NumCols() {
		s.prev.Release()
		s.prev = g
		return StatusResync
	}
	return StatusReady
}

// Adopt makes the current snapshot the baseline for the next tick.
func (s *Store) Adopt() {
	if s.curr == nil || s.curr == s.prev {
		return
	}
	s.prev.Release()
	s.prev = s.curr
}

// Previous returns the baseline snapshot.
func (s *Store) Previous() *Grid { return s.prev }

// Current returns the most recent snapshot.
func (s *Store) Current() *Grid { return s.curr }

// Empty reports whether the store holds no baseline.
func (s *Store) Empty() bool { return s.prev == nil }

// Reset drops both snapshots so the next Put starts over.
func (s *Store) Reset() {
	if s.curr != nil && s.curr != s.prev {
		s.curr.Release()
	}
	s.prev.Release()
	s.prev, s.curr = nil, nil
}
