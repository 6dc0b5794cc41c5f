// Package ratelimit counts requests in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rule is a fixed-window limit.
type Rule struct {
	Name   string
	Limit  int64
	Window time.Duration
}

var (
	// PerUserAnalyses caps analyses per user per day.
	PerUserAnalyses = Rule{Name: "user", Limit: 5, Window: 24 * time.Hour}
	// GlobalAnalyses caps analyses across all users per hour.
	GlobalAnalyses = Rule{Name: "global", Limit: 100, Window: time.Hour}
)

func (r Rule) key(subject string) string {
	return fmt.Sprintf("rate_limit:%s:%s", r.Name, subject)
}

func (r Rule) String() string {
	return fmt.Sprintf("%d/%s", r.Limit, r.Window)
}

type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

type Limiter interface {
	// Allow counts one request of subject against rule.
	Allow(ctx context.Context, rule Rule, subject string) (Decision, error)
}

func decide(rule Rule, count int64, ttl time.Duration) Decision {
	if ttl <= 0 {
		ttl = rule.Window
	}
	d := Decision{Allowed: count <= rule.Limit, Count: count}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}
