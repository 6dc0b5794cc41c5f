package submission

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/filtering"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/notify"
)

const (
	analysisFailed  = "Failed to create analysis"
	analysisCreated = "Analysis created successfully!"
)

func (s *Submitter) prepareAnalysis(ctx context.Context, form AnalysisForm) (string, backend.AnalysisRequest, error) {
	form = form.normalized()
	if err := validate(s.validator, form); err != nil {
		return "", backend.AnalysisRequest{}, err
	}

	token, err := s.token(ctx)
	if err != nil {
		return "", backend.AnalysisRequest{}, err
	}

	return token, backend.AnalysisRequest{
		ResumeText:     form.ResumeText,
		JobDescription: form.JobDescription,
		SocialProfiles: backend.SocialProfiles{
			GitHub:   form.GitHubURL,
			LinkedIn: form.LinkedInURL,
		},
	}, nil
}

// CreateAnalysis validates the form, submits it and opens the report.
func (s *Submitter) CreateAnalysis(ctx context.Context, form AnalysisForm) (*backend.AnalysisResult, error) {
	token, req, err := s.prepareAnalysis(ctx, form)
	if err != nil {
		return nil, err
	}

	result, err := s.provider.CreateAnalysis(ctx, token, req)
	if err != nil {
		return nil, s.fail(err, analysisFailed)
	}

	s.analysisCreated(result)
	return result, nil
}

type analysisOutcome struct {
	result *backend.AnalysisResult
	err    error
}

// RunAnalysis is CreateAnalysis with progress feedback. When ctx is cancelled the
// progress is cancelled and RunAnalysis returns at once; the request itself keeps
// running and its result is dropped without navigation.
func (s *Submitter) RunAnalysis(ctx context.Context, form AnalysisForm, progress Progress) (*backend.AnalysisResult, error) {
	token, req, err := s.prepareAnalysis(ctx, form)
	if err != nil {
		return nil, err
	}

	progress.Start(ctx)

	done := make(chan analysisOutcome, 1)
	go func() {
		result, err := s.provider.CreateAnalysis(context.WithoutCancel(ctx), token, req)
		done <- analysisOutcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		progress.Cancel()
		s.logger.Info("analysis cancelled by user, result will be discarded")
		go func() {
			out := <-done
			s.logger.Debug("discarded analysis result", zap.Error(out.err))
		}()
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			progress.Cancel()
			return nil, s.fail(out.err, analysisFailed)
		}
		progress.Complete()
		s.analysisCreated(out.result)
		return out.result, nil
	}
}

func (s *Submitter) analysisCreated(result *backend.AnalysisResult) {
	logger.WithSession(s.logger, result.AnalysisID, "").Info("analysis created",
		zap.Float64("match_score", result.MatchScore),
	)
	s.notifier.Notify(notify.LevelSuccess, analysisCreated)
	s.nav.Navigate(ReportRoute(result.AnalysisID))
}

func (s *Submitter) LoadAnalysis(ctx context.Context, id string) (*backend.Analysis, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	analysis, err := s.provider.GetAnalysis(ctx, token, strings.TrimSpace(id))
	if err != nil {
		return nil, s.failLoad(err, "Analysis not found", "Failed to load analysis")
	}
	return analysis, nil
}

// ListAnalyses returns the user's analyses narrowed by opts, newest first.
func (s *Submitter) ListAnalyses(ctx context.Context, opts filtering.Options) ([]backend.AnalysisSummary, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.provider.ListAnalyses(ctx, token)
	if err != nil {
		return nil, s.fail(err, "Failed to load analyses")
	}

	filtered, err := filtering.Run(ctx, s.logger, filtering.Steps(opts), &filtering.Analyses{Items: list})
	if err != nil {
		return nil, err
	}
	return filtered.Items, nil
}
