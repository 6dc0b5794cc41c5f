package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/filtering"
	"github.com/spigell/interview-coach/internal/ratelimit"
)

type analysisBody struct {
	Resume   string `json:"resume" validate:"required"`
	JobDesc  string `json:"jobDesc" validate:"required"`
	GitHub   string `json:"github"`
	LinkedIn string `json:"linkedin"`
}

type analysisResponse struct {
	AnalysisID          string   `json:"analysisId"`
	MatchScore          float64  `json:"matchScore"`
	SkillGaps           []string `json:"skillGaps"`
	Strengths           []string `json:"strengths"`
	Recommendations     []string `json:"recommendations"`
	InterviewFocusAreas []string `json:"interviewFocusAreas"`
	Summary             string   `json:"summary"`
}

type interviewBody struct {
	AnalysisID string `json:"analysisId" validate:"required"`
}

type interviewResponse struct {
	InterviewID      string   `json:"interviewId"`
	InitialQuestions []string `json:"initialQuestions"`
}

type followupBody struct {
	InterviewID         string            `json:"interview_id" validate:"required"`
	ConversationHistory []json.RawMessage `json:"conversation_history" validate:"required"`
}

type feedbackBody struct {
	InterviewID string `json:"interviewId" validate:"required"`
	Transcript  string `json:"transcript" validate:"required"`
}

type feedbackResponse struct {
	FeedbackID       string   `json:"feedbackId"`
	Summary          string   `json:"summary"`
	OverallScore     float64  `json:"overallScore"`
	StrongPoints     []string `json:"strongPoints"`
	AreasToImprove   []string `json:"areasToImprove"`
	DetailedAnalysis string   `json:"detailedAnalysis"`
}

// parse decodes and validates a request body. Any failure is a 400 with message.
func (s *Server) parse(c *fiber.Ctx, body interface{}, message string) error {
	if err := c.BodyParser(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, message)
	}
	if err := s.validator.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, message)
	}
	return nil
}

func (s *Server) createAnalysis(c *fiber.Ctx) error {
	var body analysisBody
	if err := s.parse(c, &body, "Resume and job description are required"); err != nil {
		return err
	}

	if err := s.checkLimits(c); err != nil {
		return err
	}

	result, err := s.provider.CreateAnalysis(c.UserContext(), tokenOf(c), backend.AnalysisRequest{
		ResumeText:     body.Resume,
		JobDescription: body.JobDesc,
		SocialProfiles: backend.SocialProfiles{GitHub: body.GitHub, LinkedIn: body.LinkedIn},
	})
	if err != nil {
		return upstreamError(err, "Analysis failed")
	}

	s.requestLogger(c).Info("analysis created",
		zap.String("analysis_id", result.AnalysisID),
		zap.Float64("match_score", result.MatchScore),
	)

	return c.JSON(analysisResponse{
		AnalysisID:          result.AnalysisID,
		MatchScore:          result.MatchScore,
		SkillGaps:           result.SkillGaps,
		Strengths:           result.Strengths,
		Recommendations:     result.Recommendations,
		InterviewFocusAreas: result.InterviewFocusAreas,
		Summary:             result.Summary,
	})
}

// checkLimits counts the request against the per-user and global analysis limits.
func (s *Server) checkLimits(c *fiber.Ctx) error {
	checks := []struct {
		rule    ratelimit.Rule
		subject string
		message string
	}{
		{ratelimit.PerUserAnalyses, userOf(c), "Rate limit exceeded. User limit: %s"},
		{ratelimit.GlobalAnalyses, "global", "Global rate limit exceeded: %s"},
	}

	for _, check := range checks {
		decision, err := s.limiter.Allow(c.UserContext(), check.rule, check.subject)
		if err != nil {
			s.requestLogger(c).Warn("rate limit check failed, allowing request", zap.Error(err))
			continue
		}
		if decision.Allowed {
			continue
		}

		s.requestLogger(c).Info("rate limited",
			zap.String("rule", check.rule.Name),
			zap.Int64("count", decision.Count),
			zap.Duration("retry_after", decision.RetryAfter),
		)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
		return fiber.NewError(fiber.StatusTooManyRequests, fmt.Sprintf(check.message, limitLabel(check.rule)))
	}
	return nil
}

func (s *Server) generateInterview(c *fiber.Ctx) error {
	var body interviewBody
	if err := s.parse(c, &body, "Analysis ID is required"); err != nil {
		return err
	}

	created, err := s.provider.GenerateInterview(c.UserContext(), tokenOf(c), body.AnalysisID)
	if err != nil {
		return upstreamError(err, "Interview generation failed")
	}

	return c.JSON(interviewResponse{
		InterviewID:      created.InterviewID,
		InitialQuestions: created.InitialQuestions,
	})
}

func (s *Server) followup(c *fiber.Ctx) error {
	var body followupBody
	if err := s.parse(c, &body, "Interview ID and conversation history are required"); err != nil {
		return err
	}

	if _, err := s.interview(c, body.InterviewID); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Interview not found")
		}
		s.requestLogger(c).Warn("loading interview for follow-up", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate follow-up question")
	}

	return c.JSON(fiber.Map{"followup_question": followupQuestion(len(body.ConversationHistory))})
}

func (s *Server) analyzeFeedback(c *fiber.Ctx) error {
	var body feedbackBody
	if err := s.parse(c, &body, "Interview ID and transcript are required"); err != nil {
		return err
	}

	feedback, err := s.provider.AnalyzeFeedback(c.UserContext(), tokenOf(c), backend.FeedbackRequest{
		InterviewID: body.InterviewID,
		Transcript:  body.Transcript,
	})
	if err != nil {
		return upstreamError(err, "Feedback analysis failed")
	}
	s.cache.set(kindFeedback, userOf(c), feedback.FeedbackID, feedback)

	return c.JSON(feedbackResponse{
		FeedbackID:       feedback.FeedbackID,
		Summary:          feedback.Summary,
		OverallScore:     feedback.OverallScore,
		StrongPoints:     feedback.StrongPoints,
		AreasToImprove:   feedback.AreasToImprove,
		DetailedAnalysis: feedback.DetailedAnalysis,
	})
}

func (s *Server) getAnalysis(c *fiber.Ctx) error {
	id := c.Params("id")
	if cached, ok := s.cache.get(kindAnalysis, userOf(c), id); ok {
		return c.JSON(cached)
	}

	analysis, err := s.provider.GetAnalysis(c.UserContext(), tokenOf(c), id)
	if err != nil {
		return upstreamError(err, "Analysis not found")
	}
	s.cache.set(kindAnalysis, userOf(c), id, analysis)
	return c.JSON(analysis)
}

func (s *Server) getInterview(c *fiber.Ctx) error {
	details, err := s.interview(c, c.Params("id"))
	if err != nil {
		return upstreamError(err, "Interview not found")
	}
	return c.JSON(details)
}

// interview loads interview details through the cache.
func (s *Server) interview(c *fiber.Ctx, id string) (*backend.InterviewDetails, error) {
	if cached, ok := s.cache.get(kindInterview, userOf(c), id); ok {
		if details, ok := cached.(*backend.InterviewDetails); ok {
			return details, nil
		}
	}

	details, err := s.provider.GetInterview(c.UserContext(), tokenOf(c), id)
	if err != nil {
		return nil, err
	}
	s.cache.set(kindInterview, userOf(c), id, details)
	return details, nil
}

func (s *Server) getFeedback(c *fiber.Ctx) error {
	id := c.Params("id")
	if cached, ok := s.cache.get(kindFeedback, userOf(c), id); ok {
		return c.JSON(cached)
	}

	feedback, err := s.provider.GetFeedback(c.UserContext(), tokenOf(c), id)
	if err != nil {
		return upstreamError(err, "Feedback not found")
	}
	s.cache.set(kindFeedback, userOf(c), id, feedback)
	return c.JSON(feedback)
}

func (s *Server) listAnalyses(c *fiber.Ctx) error {
	mode := strings.TrimSpace(c.Query("filter", filtering.ModeAll))
	switch mode {
	case filtering.ModeAll, filtering.ModeHighMatch, filtering.ModeRecent:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Unknown filter: "+mode)
	}

	list, err := s.provider.ListAnalyses(c.UserContext(), tokenOf(c))
	if err != nil {
		return upstreamError(err, "Failed to load analyses")
	}

	steps := filtering.Steps(filtering.Options{Query: c.Query("q"), Mode: mode})
	filtered, err := filtering.Run(c.UserContext(), s.requestLogger(c), steps, &filtering.Analyses{Items: list})
	if err != nil {
		return err
	}

	items := filtered.Items
	if items == nil {
		items = []backend.AnalysisSummary{}
	}
	return c.JSON(fiber.Map{
		"analyses": items,
		"filters":  filtering.Describe(steps),
	})
}

func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func limitLabel(rule ratelimit.Rule) string {
	switch rule.Window {
	case 24 * time.Hour:
		return fmt.Sprintf("%d/day", rule.Limit)
	case time.Hour:
		return fmt.Sprintf("%d/hour", rule.Limit)
	default:
		return rule.String()
	}
}
