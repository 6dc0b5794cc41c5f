// Package filtering narrows the analyses list with a sequence of steps.
package filtering

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
)

const (
	ModeAll       = "all"
	ModeHighMatch = "high_match"
	ModeRecent    = "recent"

	HighMatchScore = 80
	RecentWindow   = 7 * 24 * time.Hour
)

// Filter represents a single filtering step applied to analyses.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, v *Analyses) (*Analyses, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

type Analyses struct {
	Items []backend.AnalysisSummary
}

func (a *Analyses) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Items)
}

// Keep retains the items matching keep and returns the ids of the dropped ones.
func (a *Analyses) Keep(keep func(backend.AnalysisSummary) bool) []string {
	var dropped []string
	left := a.Items[:0]
	for _, item := range a.Items {
		if keep(item) {
			left = append(left, item)
			continue
		}
		dropped = append(dropped, item.ID)
	}
	a.Items = left
	return dropped
}

// SortNewest orders analyses by creation time, newest first. Items without a
// parsable timestamp go last.
func (a *Analyses) SortNewest() {
	sort.SliceStable(a.Items, func(i, j int) bool {
		ti, erri := a.Items[i].Created()
		tj, errj := a.Items[j].Created()
		switch {
		case erri != nil:
			return false
		case errj != nil:
			return true
		default:
			return ti.After(tj)
		}
	})
}

// Options selects the steps of the analyses pipeline.
type Options struct {
	Query string
	Mode  string
	Now   func() time.Time
}

// Steps builds the pipeline for the given options.
func Steps(opts Options) []Filter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	steps := []Filter{NewSearch(opts.Query), NewHighMatch(HighMatchScore), NewRecent(RecentWindow, now)}
	switch opts.Mode {
	case ModeHighMatch:
		DisableByName(steps, ModeRecent, "mode is "+opts.Mode)
	case ModeRecent:
		DisableByName(steps, ModeHighMatch, "mode is "+opts.Mode)
	default:
		DisableByName(steps, ModeHighMatch, "mode is "+ModeAll)
		DisableByName(steps, ModeRecent, "mode is "+ModeAll)
	}
	return steps
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and orders the result newest first.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, v *Analyses) (*Analyses, error) {
	if v == nil {
		v = &Analyses{}
	}
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if logger != nil {
				logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if logger != nil {
			logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		v = next
	}

	v.SortNewest()
	return v, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
