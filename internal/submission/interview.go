package submission

import (
	"context"
	"strings"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/logger"
)

func (s *Submitter) GenerateInterview(ctx context.Context, analysisID string) (*backend.InterviewCreated, error) {
	form := interviewForm{AnalysisID: strings.TrimSpace(analysisID)}
	if err := validate(s.validator, form); err != nil {
		return nil, err
	}

	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.provider.GenerateInterview(ctx, token, form.AnalysisID)
	if err != nil {
		return nil, s.fail(err, "Failed to generate interview")
	}

	logger.WithSession(s.logger, form.AnalysisID, created.InterviewID).Info("interview generated")
	s.nav.Navigate(InterviewRoute(created.InterviewID))
	return created, nil
}

func (s *Submitter) LoadInterview(ctx context.Context, id string) (*backend.InterviewDetails, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	details, err := s.provider.GetInterview(ctx, token, strings.TrimSpace(id))
	if err != nil {
		return nil, s.failLoad(err, "Interview not found", "Failed to load interview")
	}
	return details, nil
}
