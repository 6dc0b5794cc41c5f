package backend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

type SocialProfiles struct {
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

type AnalysisRequest struct {
	ResumeText     string         `json:"resume_text"`
	JobDescription string         `json:"job_description"`
	SocialProfiles SocialProfiles `json:"social_profiles"`
}

type AnalysisResult struct {
	AnalysisID          string   `json:"analysis_id"`
	MatchScore          float64  `json:"match_score"`
	SkillGaps           []string `json:"skill_gaps"`
	Strengths           []string `json:"strengths"`
	Recommendations     []string `json:"recommendations"`
	InterviewFocusAreas []string `json:"interview_focus_areas"`
	Summary             string   `json:"summary"`
}

// Analysis is the stored analysis record. SynthesisResult is kept as returned
// by the backend and decoded on demand by Synthesis.
type Analysis struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id,omitempty"`
	JobTitle        string                 `json:"job_title,omitempty"`
	Company         string                 `json:"company,omitempty"`
	JobDescription  string                 `json:"job_description,omitempty"`
	ResumeText      string                 `json:"resume_text,omitempty"`
	GitHubURL       string                 `json:"github_url,omitempty"`
	LinkedInURL     string                 `json:"linkedin_url,omitempty"`
	Status          string                 `json:"status,omitempty"`
	MatchScore      float64                `json:"match_score"`
	SynthesisResult map[string]interface{} `json:"synthesis_result,omitempty"`
	CreatedAt       string                 `json:"created_at,omitempty"`
}

type Synthesis struct {
	MatchScore          float64  `mapstructure:"match_score"`
	SkillGaps           []string `mapstructure:"skill_gaps"`
	Strengths           []string `mapstructure:"strengths"`
	Recommendations     []string `mapstructure:"recommendations"`
	InterviewFocusAreas []string `mapstructure:"interview_focus_areas"`
	Summary             string   `mapstructure:"summary"`
}

// Synthesis decodes the nested synthesis result. Unknown keys are ignored.
func (a *Analysis) Synthesis() (*Synthesis, error) {
	var s Synthesis
	if len(a.SynthesisResult) == 0 {
		return &s, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(a.SynthesisResult); err != nil {
		return nil, fmt.Errorf("decode synthesis result: %w", err)
	}
	return &s, nil
}

func (a *Analysis) Created() (time.Time, error) {
	return parseTime(a.CreatedAt)
}

// AnalysisSummary is one entry of the analyses list.
type AnalysisSummary struct {
	ID         string  `json:"id"`
	JobTitle   string  `json:"job_title,omitempty"`
	Company    string  `json:"company,omitempty"`
	MatchScore float64 `json:"match_score"`
	Status     string  `json:"status,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

func (a AnalysisSummary) Created() (time.Time, error) {
	return parseTime(a.CreatedAt)
}

type InterviewRequest struct {
	AnalysisID string `json:"analysis_id"`
}

type InterviewCreated struct {
	InterviewID      string   `json:"interview_id"`
	InitialQuestions []string `json:"initial_questions"`
}

type Interview struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id,omitempty"`
	AnalysisID   string  `json:"analysis_id,omitempty"`
	Status       string  `json:"status,omitempty"`
	OverallScore float64 `json:"overall_score"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

type Question struct {
	ID          string `json:"id,omitempty"`
	InterviewID string `json:"interview_id,omitempty"`
	Content     string `json:"content"`
	OrderIndex  int    `json:"order_index"`
}

type InterviewDetails struct {
	Interview Interview  `json:"interview"`
	Questions []Question `json:"questions"`
}

// QuestionTexts returns the non-empty questions ordered by their index.
func (d *InterviewDetails) QuestionTexts() []string {
	questions := make([]Question, len(d.Questions))
	copy(questions, d.Questions)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})

	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		if content := strings.TrimSpace(q.Content); content != "" {
			texts = append(texts, content)
		}
	}
	return texts
}

type FeedbackRequest struct {
	InterviewID string `json:"interview_id"`
	Transcript  string `json:"transcript"`
}

type Feedback struct {
	FeedbackID       string   `json:"feedback_id"`
	Summary          string   `json:"summary"`
	OverallScore     float64  `json:"overall_score"`
	StrongPoints     []string `json:"strong_points"`
	AreasToImprove   []string `json:"areas_to_improve"`
	DetailedAnalysis string   `json:"detailed_analysis"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02",
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}
