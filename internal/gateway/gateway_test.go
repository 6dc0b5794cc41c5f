package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/identity"
	"github.com/spigell/interview-coach/internal/provider"
	"github.com/spigell/interview-coach/internal/provider/fake"
	"github.com/spigell/interview-coach/internal/ratelimit"
)

const testSecret = "gateway-test-secret"

type countingProvider struct {
	*fake.Provider
	analysisReads int32
	createErr     error
}

func (p *countingProvider) GetAnalysis(ctx context.Context, token, id string) (*backend.Analysis, error) {
	atomic.AddInt32(&p.analysisReads, 1)
	return p.Provider.GetAnalysis(ctx, token, id)
}

func (p *countingProvider) CreateAnalysis(ctx context.Context, token string, req backend.AnalysisRequest) (*backend.AnalysisResult, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.Provider.CreateAnalysis(ctx, token, req)
}

type denyLimiter struct {
	rule  string
	calls int
}

func (l *denyLimiter) Allow(_ context.Context, rule ratelimit.Rule, _ string) (ratelimit.Decision, error) {
	l.calls++
	if rule.Name == l.rule {
		return ratelimit.Decision{Allowed: false, Count: rule.Limit + 1, RetryAfter: rule.Window}, nil
	}
	return ratelimit.Decision{Allowed: true, Count: 1}, nil
}

func newTestServer(t *testing.T, p provider.Provider, limiter ratelimit.Limiter) *Server {
	t.Helper()

	verifier, err := identity.NewVerifier(testSecret)
	require.NoError(t, err)

	srv, err := New(Options{
		Provider: p,
		Verifier: verifier,
		Limiter:  limiter,
		Logger:   zap.NewNop(),
		Service:  "interview-coach-test",
	})
	require.NoError(t, err)
	return srv
}

func issue(t *testing.T, userID string) string {
	t.Helper()
	issuer, err := identity.NewIssuer(testSecret)
	require.NoError(t, err)
	token, err := issuer.Issue(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func call(t *testing.T, srv *Server, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func analysisPayload() map[string]string {
	return map[string]string{
		"resume":  strings.Repeat("Go developer with distributed systems experience. ", 4),
		"jobDesc": "Senior Go Engineer\nBuild backend services in Go.",
		"github":  "https://github.com/someone",
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, fake.New(nil), nil)

	resp, body := call(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "interview-coach-test", body["service"])
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, fake.New(nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get(HeaderRequestID))
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t, fake.New(nil), nil)

	resp, body := call(t, srv, http.MethodPost, "/api/analysis", "", analysisPayload())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized: No token provided", body["error"])

	resp, body = call(t, srv, http.MethodPost, "/api/analysis", "not-a-jwt", analysisPayload())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized: Invalid token", body["error"])

	issuer, err := identity.NewIssuer("another-secret")
	require.NoError(t, err)
	foreign, err := issuer.Issue("user-1", time.Hour)
	require.NoError(t, err)

	resp, _ = call(t, srv, http.MethodGet, "/api/analyses", foreign, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAnalysis(t *testing.T) {
	srv := newTestServer(t, fake.New(nil), nil)
	token := issue(t, "user-1")

	resp, body := call(t, srv, http.MethodPost, "/api/analysis", token, analysisPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.NotEmpty(t, body["analysisId"])
	assert.Contains(t, body, "matchScore")
	assert.Contains(t, body, "interviewFocusAreas")
	assert.NotContains(t, body, "analysis_id")

	resp, body = call(t, srv, http.MethodPost, "/api/analysis", token, map[string]string{"resume": "only resume"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Resume and job description are required", body["error"])
}

func TestCreateAnalysisUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{name: "detail passes through", err: &backend.APIError{StatusCode: 422, Message: "Resume is too long"}, status: 422, msg: "Resume is too long"},
		{name: "fallback", err: &backend.APIError{StatusCode: 502}, status: 502, msg: "Analysis failed"},
		{name: "transport", err: errors.New("dial tcp: connection refused"), status: 500, msg: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &countingProvider{Provider: fake.New(nil), createErr: tt.err}
			srv := newTestServer(t, p, nil)

			resp, body := call(t, srv, http.MethodPost, "/api/analysis", issue(t, "user-1"), analysisPayload())
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("per user limit", func(t *testing.T) {
		limiter := &denyLimiter{rule: ratelimit.PerUserAnalyses.Name}
		p := &countingProvider{Provider: fake.New(nil), createErr: errors.New("must not be called")}
		srv := newTestServer(t, p, limiter)

		resp, body := call(t, srv, http.MethodPost, "/api/analysis", issue(t, "user-1"), analysisPayload())
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "86400", resp.Header.Get("Retry-After"))
		assert.Equal(t, "Rate limit exceeded. User limit: 5/day", body["error"])
	})

	t.Run("global limit", func(t *testing.T) {
		limiter := &denyLimiter{rule: ratelimit.GlobalAnalyses.Name}
		srv := newTestServer(t, fake.New(nil), limiter)

		resp, body := call(t, srv, http.MethodPost, "/api/analysis", issue(t, "user-1"), analysisPayload())
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "3600", resp.Header.Get("Retry-After"))
		assert.Equal(t, "Global rate limit exceeded: 100/hour", body["error"])
		assert.Equal(t, 2, limiter.calls)
	})

	t.Run("in memory counts per user", func(t *testing.T) {
		srv := newTestServer(t, fake.New(nil), ratelimit.NewMemory())
		token := issue(t, "user-1")

		for i := 0; i < int(ratelimit.PerUserAnalyses.Limit); i++ {
			resp, body := call(t, srv, http.MethodPost, "/api/analysis", token, analysisPayload())
			require.Equal(t, http.StatusOK, resp.StatusCode, body)
		}

		resp, _ := call(t, srv, http.MethodPost, "/api/analysis", token, analysisPayload())
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

		resp, _ = call(t, srv, http.MethodPost, "/api/analysis", issue(t, "user-2"), analysisPayload())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestInterviewFlow(t *testing.T) {
	srv := newTestServer(t, fake.New(nil), nil)
	token := issue(t, "user-1")

	_, analysis := call(t, srv, http.MethodPost, "/api/analysis", token, analysisPayload())
	analysisID, _ := analysis["analysisId"].(string)
	require.NotEmpty(t, analysisID)

	resp, interview := call(t, srv, http.MethodPost, "/api/interview", token, map[string]string{"analysisId": analysisID})
	require.Equal(t, http.StatusOK, resp.StatusCode, interview)
	interviewID, _ := interview["interviewId"].(string)
	require.NotEmpty(t, interviewID)
	assert.NotEmpty(t, interview["initialQuestions"])

	resp, details := call(t, srv, http.MethodGet, "/api/interview/"+interviewID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, details, "questions")

	resp, feedback := call(t, srv, http.MethodPost, "/api/feedback", token, map[string]string{
		"interviewId": interviewID,
		"transcript":  "assistant: Hello\nuser: Hi there",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, feedback)
	assert.Equal(t, interviewID, feedback["feedbackId"])
	assert.Contains(t, feedback, "overallScore")

	resp, stored := call(t, srv, http.MethodGet, "/api/feedback/"+interviewID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, interviewID, stored["feedback_id"])

	resp, body := call(t, srv, http.MethodPost, "/api/interview", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Analysis ID is required", body["error"])

	resp, body = call(t, srv, http.MethodPost, "/api/feedback", token, map[string]string{"interviewId": interviewID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Interview ID and transcript are required", body["error"])
}

func TestFollowup(t *testing.T) {
	p := fake.New(nil)
	srv := newTestServer(t, p, nil)
	token := issue(t, "user-1")

	_, analysis := call(t, srv, http.MethodPost, "/api/analysis", token, analysisPayload())
	_, interview := call(t, srv, http.MethodPost, "/api/interview", token, map[string]interface{}{"analysisId": analysis["analysisId"]})
	interviewID, _ := interview["interviewId"].(string)
	require.NotEmpty(t, interviewID)

	history := func(n int) []map[string]string {
		out := make([]map[string]string, n)
		for i := range out {
			out[i] = map[string]string{"role": "user", "content": "answer"}
		}
		return out
	}

	resp, body := call(t, srv, http.MethodPost, "/api/interview/followup", token, map[string]interface{}{
		"interview_id":         interviewID,
		"conversation_history": history(3),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, followupQuestion(3), body["followup_question"])

	resp, body = call(t, srv, http.MethodPost, "/api/interview/followup", token, map[string]interface{}{
		"interview_id":         "missing",
		"conversation_history": history(1),
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Interview not found", body["error"])

	resp, body = call(t, srv, http.MethodPost, "/api/interview/followup", token, map[string]interface{}{
		"interview_id": interviewID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Interview ID and conversation history are required", body["error"])
}

func TestFollowupQuestionBuckets(t *testing.T) {
	assert.Equal(t, followupQuestion(0), followupQuestion(2))
	assert.NotEqual(t, followupQuestion(2), followupQuestion(3))
	assert.Equal(t, followupQuestion(3), followupQuestion(4))
	assert.Equal(t, followupQuestion(5), followupQuestion(6))
	assert.Equal(t, followupQuestion(7), followupQuestion(8))
	assert.Equal(t, followupQuestion(9), followupQuestion(40))
	assert.Contains(t, followupQuestion(9), "questions about the role")
}

func TestGetAnalysisIsCached(t *testing.T) {
	p := &countingProvider{Provider: fake.New(nil)}
	srv := newTestServer(t, p, nil)
	token := issue(t, "user-1")

	_, created := call(t, srv, http.MethodPost, "/api/analysis", token, analysisPayload())
	id, _ := created["analysisId"].(string)
	require.NotEmpty(t, id)

	for i := 0; i < 3; i++ {
		resp, body := call(t, srv, http.MethodGet, "/api/analysis/"+id, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, id, body["id"])
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&p.analysisReads))

	resp, body := call(t, srv, http.MethodGet, "/api/analysis/"+id, issue(t, "user-2"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access denied", body["error"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.analysisReads))

	resp, body = call(t, srv, http.MethodGet, "/api/analysis/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Analysis not found", body["error"])
}

func TestCacheKeysDoNotCollide(t *testing.T) {
	r := newRecords(CacheTTL{})
	assert.NotEqual(t, r.key(kindAnalysis, "a:b", "c"), r.key(kindAnalysis, "a", "b:c"))
	assert.NotEqual(t, r.key(kindFeedback, "u%3A1", "x"), r.key(kindFeedback, "u:1", "x"))

	r.set(kindAnalysis, "a:b", "c", "first")
	_, ok := r.get(kindAnalysis, "a", "b:c")
	assert.False(t, ok)

	v, ok := r.get(kindAnalysis, "a:b", "c")
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestListAnalyses(t *testing.T) {
	srv := newTestServer(t, fake.New(nil), nil)
	token := issue(t, "user-1")

	for i := 0; i < 2; i++ {
		payload := analysisPayload()
		payload["resume"] += strings.Repeat("x", i)
		resp, _ := call(t, srv, http.MethodPost, "/api/analysis", token, payload)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := call(t, srv, http.MethodGet, "/api/analyses", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ := body["analyses"].([]interface{})
	assert.Len(t, items, 2)
	assert.NotEmpty(t, body["filters"])

	resp, body = call(t, srv, http.MethodGet, "/api/analyses?q=no-such-title", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ = body["analyses"].([]interface{})
	assert.Empty(t, items)

	resp, body = call(t, srv, http.MethodGet, "/api/analyses?filter=favourites", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unknown filter: favourites", body["error"])
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Provider: fake.New(nil)})
	assert.Error(t, err)
}
