package submission

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/notify"
)

// SubmitFeedback sends the interview transcript for scoring and opens the feedback page.
func (s *Submitter) SubmitFeedback(ctx context.Context, interviewID, transcript string) (*backend.Feedback, error) {
	form := feedbackForm{
		InterviewID: strings.TrimSpace(interviewID),
		Transcript:  strings.TrimSpace(transcript),
	}
	if err := validate(s.validator, form); err != nil {
		return nil, err
	}

	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	feedback, err := s.provider.AnalyzeFeedback(ctx, token, backend.FeedbackRequest{
		InterviewID: form.InterviewID,
		Transcript:  form.Transcript,
	})
	if err != nil {
		return nil, s.fail(err, "Failed to process interview")
	}

	logger.WithSession(s.logger, "", form.InterviewID).Info("feedback created",
		zap.Float64("overall_score", feedback.OverallScore),
	)
	s.nav.Navigate(FeedbackRoute(feedback.FeedbackID))
	return feedback, nil
}

// Handoff returns the end-of-call transcript handler for interviewID.
// Validation failures are reported as error notifications, since no form shows them.
func (s *Submitter) Handoff(interviewID string) func(ctx context.Context, transcript string) error {
	return func(ctx context.Context, transcript string) error {
		_, err := s.SubmitFeedback(ctx, interviewID, transcript)
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			for _, msg := range invalid.Messages() {
				s.notifier.Notify(notify.LevelError, msg)
			}
		}
		return err
	}
}

func (s *Submitter) LoadFeedback(ctx context.Context, id string) (*backend.Feedback, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	feedback, err := s.provider.GetFeedback(ctx, token, strings.TrimSpace(id))
	if err != nil {
		return nil, s.failLoad(err, "Feedback not found", "Failed to load feedback")
	}
	return feedback, nil
}
