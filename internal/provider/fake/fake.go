// Package fake is a deterministic in-memory stand-in for the analysis backend.
// Identical inputs produce identical scores; ids are name-based uuids.
package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/identity"
)

var namespace = uuid.MustParse("6f1c2f5e-8a51-4c39-9a4d-2f0b8e0c7d11")

var focusAreas = []string{
	"System design",
	"Testing strategy",
	"Production incidents",
	"Team collaboration",
	"Performance tuning",
	"API design",
}

type analysisRecord struct {
	owner    string
	analysis backend.Analysis
}

type interviewRecord struct {
	owner    string
	details  backend.InterviewDetails
	feedback *backend.Feedback
}

type Provider struct {
	now func() time.Time

	mu         sync.Mutex
	seq        int
	analyses   map[string]*analysisRecord
	interviews map[string]*interviewRecord
}

// New returns an empty provider. A nil clock means time.Now.
func New(now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{
		now:        now,
		analyses:   make(map[string]*analysisRecord),
		interviews: make(map[string]*interviewRecord),
	}
}

func (p *Provider) CreateAnalysis(_ context.Context, token string, req backend.AnalysisRequest) (*backend.AnalysisResult, error) {
	owner, err := ownerOf(token)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		return nil, apiError(http.StatusBadRequest, "Resume text is required")
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, apiError(http.StatusBadRequest, "Job description is required")
	}

	h := hash(req.ResumeText, req.JobDescription, req.SocialProfiles.GitHub, req.SocialProfiles.LinkedIn)
	score := float64(50 + h%46)
	gaps := pick(focusAreas, h, 2)
	strengths := pick(focusAreas, h>>8, 2)

	result := backend.AnalysisResult{
		MatchScore:          score,
		SkillGaps:           gaps,
		Strengths:           strengths,
		Recommendations:     recommendations(gaps),
		InterviewFocusAreas: gaps,
		Summary:             fmt.Sprintf("Synthetic analysis with a %.0f%% match.", score),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result.AnalysisID = p.nextID("analysis", owner, req.ResumeText, req.JobDescription)
	p.analyses[result.AnalysisID] = &analysisRecord{
		owner: owner,
		analysis: backend.Analysis{
			ID:             result.AnalysisID,
			JobTitle:       firstLine(req.JobDescription),
			JobDescription: req.JobDescription,
			ResumeText:     req.ResumeText,
			GitHubURL:      req.SocialProfiles.GitHub,
			LinkedInURL:    req.SocialProfiles.LinkedIn,
			Status:         "completed",
			MatchScore:     score,
			SynthesisResult: map[string]interface{}{
				"match_score":           score,
				"skill_gaps":            result.SkillGaps,
				"strengths":             result.Strengths,
				"recommendations":       result.Recommendations,
				"interview_focus_areas": result.InterviewFocusAreas,
				"summary":               result.Summary,
			},
			CreatedAt: p.now().UTC().Format(time.RFC3339Nano),
		},
	}

	return &result, nil
}

func (p *Provider) GetAnalysis(_ context.Context, token, id string) (*backend.Analysis, error) {
	owner, err := ownerOf(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.analysisLocked(owner, id)
	if err != nil {
		return nil, err
	}
	analysis := rec.analysis
	return &analysis, nil
}

func (p *Provider) ListAnalyses(_ context.Context, token string) ([]backend.AnalysisSummary, error) {
	owner, err := ownerOf(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	list := make([]backend.AnalysisSummary, 0, len(p.analyses))
	for _, rec := range p.analyses {
		if rec.owner != owner {
			continue
		}
		a := rec.analysis
		list = append(list, backend.AnalysisSummary{
			ID:         a.ID,
			JobTitle:   a.JobTitle,
			Company:    a.Company,
			MatchScore: a.MatchScore,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (p *Provider) GenerateInterview(_ context.Context, token, analysisID string) (*backend.InterviewCreated, error) {
	owner, err := ownerOf(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.analysisLocked(owner, analysisID)
	if err != nil {
		return nil, err
	}
	synthesis, err := rec.analysis.Synthesis()
	if err != nil {
		return nil, err
	}

	questions := []string{"Tell me about yourself and what draws you to this role."}
	for _, area := range synthesis.InterviewFocusAreas {
		questions = append(questions, fmt.Sprintf("Can you walk me through your experience with %s?", strings.ToLower(area)))
	}
	questions = append(questions, "Describe a challenging project and how you handled it.")

	id := p.nextID("interview", owner, analysisID)
	details := backend.InterviewDetails{
		Interview: backend.Interview{
			ID:         id,
			AnalysisID: analysisID,
			Status:     "created",
			CreatedAt:  p.now().UTC().Format(time.RFC3339Nano),
		},
	}
	for i, q := range questions {
		details.Questions = append(details.Questions, backend.Question{InterviewID: id, Content: q, OrderIndex: i})
	}
	p.interviews[id] = &interviewRecord{owner: owner, details: details}

	return &backend.InterviewCreated{InterviewID: id, InitialQuestions: questions}, nil
}

func (p *Provider) GetInterview(_ context.Context, token, id string) (*backend.InterviewDetails, error) {
	owner, err := ownerOf(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.interviewLocked(owner, id)
	if err != nil {
		return nil, err
	}
	details := rec.details
	details.Questions = append([]backend.Question(nil), rec.details.Questions...)
	return &details, nil
}

func (p *Provider) AnalyzeFeedback(_ context.Context, token string, req backend.FeedbackRequest) (*backend.Feedback, error) {
	owner, err := ownerOf(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.interviewLocked(owner, req.InterviewID)
	if err != nil {
		return nil, err
	}

	lines := 0
	for _, line := range strings.Split(req.Transcript, "\n") {
		if strings.HasPrefix(line, "user:") {
			lines++
		}
	}

	h := hash(req.Transcript)
	score := float64(40 + h%56)
	feedback := &backend.Feedback{
		FeedbackID:       req.InterviewID,
		Summary:          fmt.Sprintf("Synthetic feedback for %d answers.", lines),
		OverallScore:     score,
		StrongPoints:     pick(focusAreas, h, 2),
		AreasToImprove:   pick(focusAreas, h>>8, 2),
		DetailedAnalysis: fmt.Sprintf("The candidate answered %d questions with an overall score of %.0f.", lines, score),
	}

	rec.feedback = feedback
	rec.details.Interview.Status = "completed"
	rec.details.Interview.OverallScore = score

	out := *feedback
	return &out, nil
}

func (p *Provider) GetFeedback(_ context.Context, token, id string) (*backend.Feedback, error) {
	owner, err := ownerOf(token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.interviewLocked(owner, id)
	if err != nil {
		return nil, err
	}
	if rec.feedback == nil {
		return nil, apiError(http.StatusNotFound, "Feedback not found")
	}
	out := *rec.feedback
	return &out, nil
}

func (p *Provider) analysisLocked(owner, id string) (*analysisRecord, error) {
	rec, ok := p.analyses[id]
	if !ok {
		return nil, apiError(http.StatusNotFound, "Analysis not found")
	}
	if rec.owner != owner {
		return nil, apiError(http.StatusForbidden, "Access denied")
	}
	return rec, nil
}

func (p *Provider) interviewLocked(owner, id string) (*interviewRecord, error) {
	rec, ok := p.interviews[id]
	if !ok {
		return nil, apiError(http.StatusNotFound, "Interview not found")
	}
	if rec.owner != owner {
		return nil, apiError(http.StatusForbidden, "Access denied")
	}
	return rec, nil
}

func (p *Provider) nextID(kind string, parts ...string) string {
	p.seq++
	name := fmt.Sprintf("%s:%d:%s", kind, p.seq, strings.Join(parts, "\x00"))
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

func ownerOf(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", identity.ErrUnauthorized
	}
	return fmt.Sprintf("%08x", hash(token)), nil
}

func apiError(status int, message string) error {
	return &backend.APIError{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Message:    message,
	}
}

func hash(parts ...string) uint32 {
	h := fnv.New32a()
	for _, part := range parts {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum32()
}

func pick(items []string, seed uint32, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n && i < len(items); i++ {
		out = append(out, items[(int(seed%uint32(len(items)))+i*3)%len(items)])
	}
	return out
}

func recommendations(gaps []string) []string {
	out := make([]string, 0, len(gaps))
	for _, gap := range gaps {
		out = append(out, fmt.Sprintf("Prepare a concrete story about %s.", strings.ToLower(gap)))
	}
	return out
}

func firstLine(s string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(s), "\n", 2)[0])
	if runes := []rune(line); len(runes) > 80 {
		line = string(runes[:80])
	}
	return line
}
