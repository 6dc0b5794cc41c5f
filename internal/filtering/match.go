package filtering

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spigell/interview-coach/internal/backend"
)

type highMatchFilter struct {
	min      float64
	disabled bool
	reason   string
}

// NewHighMatch creates a filter keeping analyses scored at least min.
func NewHighMatch(min float64) Filter {
	return &highMatchFilter{min: min}
}

func (f *highMatchFilter) Name() string { return ModeHighMatch }

func (f *highMatchFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *highMatchFilter) IsEnabled() bool { return !f.disabled }

func (f *highMatchFilter) Validate() error {
	if f.min < 0 || f.min > 100 {
		return fmt.Errorf("minimum score must be within 0..100, got %v", f.min)
	}
	return nil
}

func (f *highMatchFilter) Apply(_ context.Context, v *Analyses) (*Analyses, Step, error) {
	initial := v.Len()
	dropped := v.Keep(func(a backend.AnalysisSummary) bool {
		return a.MatchScore >= f.min
	})
	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}, nil
}

func (f *highMatchFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"minimum_score": strconv.FormatFloat(f.min, 'f', -1, 64)},
	}
}

type recentFilter struct {
	window   time.Duration
	now      func() time.Time
	disabled bool
	reason   string
}

// NewRecent creates a filter keeping analyses created within window.
func NewRecent(window time.Duration, now func() time.Time) Filter {
	if now == nil {
		now = time.Now
	}
	return &recentFilter{window: window, now: now}
}

func (f *recentFilter) Name() string { return ModeRecent }

func (f *recentFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *recentFilter) IsEnabled() bool { return !f.disabled }

func (f *recentFilter) Validate() error {
	if f.window <= 0 {
		return fmt.Errorf("window must be positive, got %s", f.window)
	}
	return nil
}

func (f *recentFilter) Apply(_ context.Context, v *Analyses) (*Analyses, Step, error) {
	initial := v.Len()
	since := f.now().Add(-f.window)
	dropped := v.Keep(func(a backend.AnalysisSummary) bool {
		created, err := a.Created()
		return err == nil && !created.Before(since)
	})
	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}, nil
}

func (f *recentFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"window": f.window.String()},
	}
}
