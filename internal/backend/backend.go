// Package backend is the HTTP client of the analysis, interview and feedback service.
package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "http://localhost:8000"
	userAgent = "spigell/interview-coach"
)

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = apiURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		APIURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) CreateAnalysis(ctx context.Context, token string, req AnalysisRequest) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := c.postJSON(ctx, token, "/analyze", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetAnalysis(ctx context.Context, token, id string) (*Analysis, error) {
	var analysis Analysis
	if err := c.getJSON(ctx, token, "/analysis/"+url.PathEscape(id), &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (c *Client) ListAnalyses(ctx context.Context, token string) ([]AnalysisSummary, error) {
	var list []AnalysisSummary
	if err := c.getJSON(ctx, token, "/analyses", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GenerateInterview(ctx context.Context, token, analysisID string) (*InterviewCreated, error) {
	var created InterviewCreated
	if err := c.postJSON(ctx, token, "/interview/generate", InterviewRequest{AnalysisID: analysisID}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetInterview(ctx context.Context, token, id string) (*InterviewDetails, error) {
	var details InterviewDetails
	if err := c.getJSON(ctx, token, "/interview/"+url.PathEscape(id), &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) AnalyzeFeedback(ctx context.Context, token string, req FeedbackRequest) (*Feedback, error) {
	var feedback Feedback
	if err := c.postJSON(ctx, token, "/feedback/analyze", req, &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (c *Client) GetFeedback(ctx context.Context, token, id string) (*Feedback, error) {
	var feedback Feedback
	if err := c.getJSON(ctx, token, "/feedback/"+url.PathEscape(id), &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}
