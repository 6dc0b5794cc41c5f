package call

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := BuildConfig(Settings{}, []string{"Why this role?", "  ", "Describe a conflict."})
	if err != nil {
		t.Fatalf("build config: %v", err)
	}

	if cfg.Model.Provider != "openai" || cfg.Model.Model != "gpt-4" {
		t.Fatalf("unexpected model: %+v", cfg.Model)
	}
	if cfg.Voice.Provider != "11labs" || cfg.Voice.VoiceID != "21m00Tcm4TlvDq8ikWAM" {
		t.Fatalf("unexpected voice: %+v", cfg.Voice)
	}
	if len(cfg.Model.Messages) != 1 || cfg.Model.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", cfg.Model.Messages)
	}

	prompt := cfg.Model.Messages[0].Content
	for _, want := range []string{"Your name is Riley.", "- Why this role?\n- Describe a conflict."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt %q does not contain %q", prompt, want)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("prompt has unreplaced placeholders: %q", prompt)
	}
}

func TestBuildConfigOverrides(t *testing.T) {
	cfg, err := BuildConfig(Settings{
		AssistantID:     " asst-1 ",
		Model:           "gpt-4o",
		VoiceID:         "voice-2",
		InterviewerName: "Sam",
	}, []string{"q"})
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if cfg.AssistantID != "asst-1" || cfg.Model.Model != "gpt-4o" || cfg.Voice.VoiceID != "voice-2" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !strings.Contains(cfg.Model.Messages[0].Content, "Your name is Sam.") {
		t.Fatalf("interviewer name not applied")
	}
}

func TestBuildConfigRequiresQuestions(t *testing.T) {
	if _, err := BuildConfig(Settings{}, nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestParseEventKind(t *testing.T) {
	kind, ok := ParseEventKind("speech-start")
	if !ok || kind != EventSpeechStart {
		t.Fatalf("unexpected kind %v %v", kind, ok)
	}
	if _, ok := ParseEventKind("hang-up"); ok {
		t.Fatalf("expected unknown event")
	}
	if EventVolumeLevel.String() != "volume-level" {
		t.Fatalf("unexpected name %q", EventVolumeLevel.String())
	}
}
