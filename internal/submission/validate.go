package submission

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError lists the invalid fields of a submission with user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Messages returns the field messages in field order.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.Fields[k])
	}
	return out
}

type AnalysisForm struct {
	ResumeText     string `json:"resume_text" validate:"required,min=100"`
	JobDescription string `json:"job_description" validate:"required,min=50"`
	GitHubURL      string `json:"github_url" validate:"omitempty,url"`
	LinkedInURL    string `json:"linkedin_url" validate:"omitempty,url"`
}

type interviewForm struct {
	AnalysisID string `json:"analysis_id" validate:"required"`
}

type feedbackForm struct {
	InterviewID string `json:"interview_id" validate:"required"`
	Transcript  string `json:"transcript" validate:"required"`
}

var messages = map[string]string{
	"resume_text.required":     "Resume must be at least 100 characters",
	"resume_text.min":          "Resume must be at least 100 characters",
	"job_description.required": "Job description must be at least 50 characters",
	"job_description.min":      "Job description must be at least 50 characters",
	"github_url.url":           "Please enter a valid GitHub URL",
	"linkedin_url.url":         "Please enter a valid LinkedIn URL",
	"analysis_id.required":     "Analysis id is required",
	"interview_id.required":    "Interview id is required",
	"transcript.required":      "Transcript is empty",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate runs struct validation and converts failures into a ValidationError.
func validate(v *validator.Validate, form interface{}) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}

func (f AnalysisForm) normalized() AnalysisForm {
	return AnalysisForm{
		ResumeText:     strings.TrimSpace(f.ResumeText),
		JobDescription: strings.TrimSpace(f.JobDescription),
		GitHubURL:      strings.TrimSpace(f.GitHubURL),
		LinkedInURL:    strings.TrimSpace(f.LinkedInURL),
	}
}
