package filtering

import (
	"context"
	"strings"

	"github.com/spigell/interview-coach/internal/backend"
)

type searchFilter struct {
	query    string
	disabled bool
	reason   string
}

// NewSearch creates a filter keeping analyses whose job title or company contains the query.
func NewSearch(query string) Filter {
	return &searchFilter{query: strings.ToLower(strings.TrimSpace(query))}
}

func (f *searchFilter) Name() string { return "search" }

func (f *searchFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *searchFilter) IsEnabled() bool { return !f.disabled }

func (f *searchFilter) Validate() error { return nil }

func (f *searchFilter) Apply(_ context.Context, v *Analyses) (*Analyses, Step, error) {
	initial := v.Len()
	if f.query == "" {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	dropped := v.Keep(func(a backend.AnalysisSummary) bool {
		return strings.Contains(strings.ToLower(a.JobTitle), f.query) ||
			strings.Contains(strings.ToLower(a.Company), f.query)
	})

	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}, nil
}

func (f *searchFilter) Status() Status {
	details := map[string]string{}
	if f.query != "" {
		details["query"] = f.query
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
