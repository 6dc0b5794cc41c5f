package call

import (
	"strings"

	_ "embed"
)

const (
	defaultModelProvider   = "openai"
	defaultModel           = "gpt-4"
	defaultVoiceProvider   = "11labs"
	defaultVoiceID         = "21m00Tcm4TlvDq8ikWAM"
	defaultInterviewerName = "Riley"
)

//go:embed prompt.md
var promptTemplate string

// Settings holds the static part of the call configuration.
type Settings struct {
	AssistantID     string `mapstructure:"assistant-id"`
	ModelProvider   string `mapstructure:"model-provider"`
	Model           string `mapstructure:"model"`
	VoiceProvider   string `mapstructure:"voice-provider"`
	VoiceID         string `mapstructure:"voice-id"`
	InterviewerName string `mapstructure:"interviewer-name"`
}

type Config struct {
	AssistantID string      `json:"assistant_id,omitempty"`
	Model       ModelConfig `json:"model"`
	Voice       VoiceConfig `json:"voice"`
}

type ModelConfig struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Messages []ModelMessage `json:"messages"`
}

type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type VoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.ModelProvider) == "" {
		s.ModelProvider = defaultModelProvider
	}
	if strings.TrimSpace(s.Model) == "" {
		s.Model = defaultModel
	}
	if strings.TrimSpace(s.VoiceProvider) == "" {
		s.VoiceProvider = defaultVoiceProvider
	}
	if strings.TrimSpace(s.VoiceID) == "" {
		s.VoiceID = defaultVoiceID
	}
	if strings.TrimSpace(s.InterviewerName) == "" {
		s.InterviewerName = defaultInterviewerName
	}
	return s
}

// BuildConfig assembles the call configuration with a system prompt listing the questions.
func BuildConfig(s Settings, questions []string) (Config, error) {
	s = s.withDefaults()

	items := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		items = append(items, "- "+q)
	}
	if len(items) == 0 {
		return Config{}, ErrNoQuestions
	}

	return Config{
		AssistantID: strings.TrimSpace(s.AssistantID),
		Model: ModelConfig{
			Provider: s.ModelProvider,
			Model:    s.Model,
			Messages: []ModelMessage{{
				Role:    "system",
				Content: buildPrompt(s.InterviewerName, items),
			}},
		},
		Voice: VoiceConfig{
			Provider: s.VoiceProvider,
			VoiceID:  s.VoiceID,
		},
	}, nil
}

func buildPrompt(name string, items []string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{INTERVIEWER_NAME}}", name)
	prompt = strings.ReplaceAll(prompt, "{{QUESTIONS}}", strings.Join(items, "\n"))
	return strings.TrimSpace(prompt)
}
