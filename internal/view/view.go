// Package view is the registry of monitored statistics views. Each view
// maps a server version bucket to one complete query together with the
// column ranges that may be diffed and sorted.
package view

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/sadopc/pgtop/internal/stat"
)

// Server version numbers as reported by server_version_num.
const (
	pgv94 = 9_04_00
	pgv96 = 9_06_00
	pgv10 = 10_00_00
	pgv13 = 13_00_00
	pgv17 = 17_00_00
)

var (
	ErrUnknownView = errors.New("unknown view")
	ErrUnsupported = errors.New("view not supported by this server version")
	ErrBadMinAge   = errors.New("min age must look like HH:MM:SS or HH:MM:SS.ms")
)

// ID identifies a monitored view.
type ID int

const (
	Databases ID = iota
	Replication
	Tables
	TablesIO
	Indexes
	Sizes
	Functions
	Activity
	Vacuum
	StatementsTimings
	StatementsGeneral
	StatementsIO
	StatementsTemp
	StatementsLocal
	numViews
)

// Variant is the query and column ranges used from MinVersion onward.
type Variant struct {
	MinVersion int
	Query      string
	// SystemQuery replaces Query when system objects are shown. Empty
	// means the view has no separate system variant.
	SystemQuery string
	Diff        stat.Range
	Sort        stat.Range
}

// View describes one monitored view.
type View struct {
	ID    ID
	Name  string
	Title string
	Key   string
	// DefaultSort is the initial sort column, or stat.NoSort for server
	// order.
	DefaultSort int
	DefaultDesc bool
	// MinAge views take the operator's minimum age as $1.
	MinAge   bool
	Variants []Variant
}

// Options carry per-tab switches that change the resolved query.
type Options struct {
	ShowSystem bool
	MinAge     string
}

// Resolved is a view bound to a concrete server version.
type Resolved struct {
	ID    ID
	Title string
	Query string
	Args  []any
	Diff  stat.Range
	Sort  stat.Range
}

// DefaultMinAge is the threshold used until the operator sets one.
const DefaultMinAge = "00:00:00"

var minAgeRe = regexp.MustCompile(`^\d{2,}:[0-5]\d:[0-5]\d(\.\d{1,6})?$`)

// ValidateMinAge checks the free text threshold used by long running views
// and group signals.
func ValidateMinAge(s string) error {
	if !minAgeRe.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrBadMinAge, s)
	}
	return nil
}

// Get returns the view registered under id.
func Get(id ID) (*View, error) {
	if id < 0 || id >= numViews {
		return nil, fmt.Errorf("%w: %d", ErrUnknownView, id)
	}
	return registry[id], nil
}

// All returns every registered view in ID order.
func All() []*View {
	out := make([]*View, 0, numViews)
	for id := ID(0); id < numViews; id++ {
		out = append(out, registry[id])
	}
	return out
}

// Resolve selects the variant of view id for the server version and
// applies opts.
func Resolve(id ID, version int, opts Options) (Resolved, error) {
	v, err := Get(id)
	if err != nil {
		return Resolved{}, err
	}
	variant, ok := v.variantFor(version)
	if !ok {
		return Resolved{}, fmt.Errorf("%w: %s needs %s", ErrUnsupported, v.Name, FormatVersion(v.Variants[0].MinVersion))
	}

	r := Resolved{
		ID:    v.ID,
		Title: v.Title,
		Query: variant.Query,
		Diff:  variant.Diff,
		Sort:  variant.Sort,
	}
	if opts.ShowSystem && variant.SystemQuery != "" {
		r.Query = variant.SystemQuery
	}
	if v.MinAge {
		age := opts.MinAge
		if age == "" {
			age = DefaultMinAge
		}
		if err := ValidateMinAge(age); err != nil {
			return Resolved{}, err
		}
		r.Args = []any{age}
	}
	return r, nil
}

// Supported reports whether view id has a variant for version.
func Supported(id ID, version int) bool {
	v, err := Get(id)
	if err != nil {
		return false
	}
	_, ok := v.variantFor(version)
	return ok
}

func (v *View) variantFor(version int) (Variant, bool) {
	var best Variant
	found := false
	for _, variant := range v.Variants {
		if variant.MinVersion <= version && (!found || variant.MinVersion >= best.MinVersion) {
			best = variant
			found = true
		}
	}
	return best, found
}

// SortInRange reports whether column col may be used as a sort key.
func (r Resolved) SortInRange(col int) bool {
	return r.Sort.Contains(col)
}

// NextStatements cycles through the pg_stat_statements views.
func NextStatements(id ID) ID {
	switch id {
	case StatementsTimings:
		return StatementsGeneral
	case StatementsGeneral:
		return StatementsIO
	case StatementsIO:
		return StatementsTemp
	case StatementsTemp:
		return StatementsLocal
	default:
		return StatementsTimings
	}
}

// IsStatements reports whether id is one of the pg_stat_statements views.
func IsStatements(id ID) bool {
	return id >= StatementsTimings && id <= StatementsLocal
}

// FormatVersion renders a server_version_num value as major.minor.
func FormatVersion(num int) string {
	if num >= pgv10 {
		return fmt.Sprintf("%d.%d", num/10000, num%10000)
	}
	return fmt.Sprintf("%d.%d.%d", num/10000, num/100%100, num%100)
}

func cols(n int) stat.Range { return stat.Range{Min: 0, Max: n - 1} }

// HasQueryText reports whether the last column of view id holds query text.
func HasQueryText(id ID) bool {
	return id == Activity || IsStatements(id)
}

// HasPID reports whether column 0 of view id is a backend pid.
func HasPID(id ID) bool {
	return id == Activity || id == Replication || id == Vacuum
}
