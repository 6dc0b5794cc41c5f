// Package provider selects where analyses, interviews and feedback come from.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/provider/fake"
)

const (
	KindBackend = "backend"
	KindFake    = "fake"
)

type Provider interface {
	CreateAnalysis(ctx context.Context, token string, req backend.AnalysisRequest) (*backend.AnalysisResult, error)
	GetAnalysis(ctx context.Context, token, id string) (*backend.Analysis, error)
	ListAnalyses(ctx context.Context, token string) ([]backend.AnalysisSummary, error)
	GenerateInterview(ctx context.Context, token, analysisID string) (*backend.InterviewCreated, error)
	GetInterview(ctx context.Context, token, id string) (*backend.InterviewDetails, error)
	AnalyzeFeedback(ctx context.Context, token string, req backend.FeedbackRequest) (*backend.Feedback, error)
	GetFeedback(ctx context.Context, token, id string) (*backend.Feedback, error)
}

var (
	_ Provider = (*backend.Client)(nil)
	_ Provider = (*fake.Provider)(nil)
)

type Config struct {
	Kind    string        `mapstructure:"kind"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// New builds the configured provider. The fake is only used when asked for explicitly.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindBackend:
		return backend.New(logger, cfg.URL, cfg.Timeout), nil
	case KindFake:
		logger.Warn("using the fake analysis provider, results are synthetic")
		return fake.New(nil), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Kind)
	}
}
