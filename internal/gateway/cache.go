package gateway

import (
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheTTL sets how long fetched records are served from memory.
type CacheTTL struct {
	Analysis  time.Duration `mapstructure:"analysis"`
	Interview time.Duration `mapstructure:"interview"`
	Feedback  time.Duration `mapstructure:"feedback"`
}

func (t CacheTTL) withDefaults() CacheTTL {
	if t.Analysis <= 0 {
		t.Analysis = 24 * time.Hour
	}
	if t.Interview <= 0 {
		t.Interview = 2 * time.Hour
	}
	if t.Feedback <= 0 {
		t.Feedback = 2 * time.Hour
	}
	return t
}

const (
	kindAnalysis  = "analysis"
	kindInterview = "interview"
	kindFeedback  = "feedback"
)

// records caches backend records per user so one user never sees another's entry.
type records struct {
	ttl   CacheTTL
	cache *cache.Cache
}

func newRecords(ttl CacheTTL) *records {
	return &records{
		ttl:   ttl.withDefaults(),
		cache: cache.New(2*time.Hour, 10*time.Minute),
	}
}

// key escapes each part, so ':' inside a user or record id cannot shift the boundaries.
func (r *records) key(kind, userID, id string) string {
	return kind + ":" + url.QueryEscape(userID) + ":" + url.QueryEscape(id)
}

func (r *records) get(kind, userID, id string) (interface{}, bool) {
	return r.cache.Get(r.key(kind, userID, id))
}

func (r *records) set(kind, userID, id string, v interface{}) {
	r.cache.Set(r.key(kind, userID, id), v, r.ttlOf(kind))
}

func (r *records) ttlOf(kind string) time.Duration {
	switch kind {
	case kindAnalysis:
		return r.ttl.Analysis
	case kindInterview:
		return r.ttl.Interview
	default:
		return r.ttl.Feedback
	}
}
