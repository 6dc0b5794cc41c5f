package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// countingReader records how many reads returned data.
type countingReader struct {
	r     *strings.Reader
	reads int
}

func (o *countingReader) Read(p []byte) (int, error) {
	n, err := o.r.Read(p)
	if n > 0 {
		o.reads++
	}
	return n, err
}

func TestReadInputsRejectsSecondStdin(t *testing.T) {
	stdin := &countingReader{r: strings.NewReader("resume from stdin")}

	_, err := readInputs(map[string]string{"resume": "-", "job": " - ", "github": ""}, stdin)
	if err == nil {
		t.Fatalf("expected an error for two stdin inputs")
	}
	if !strings.Contains(err.Error(), "--job and --resume") {
		t.Fatalf("unexpected error %q", err)
	}
	if stdin.reads != 0 {
		t.Fatalf("stdin must not be read when inputs are rejected")
	}
}

func TestReadInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.txt")
	if err := os.WriteFile(path, []byte("job from file"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := readInputs(map[string]string{
		"resume":   "-",
		"job":      path,
		"github":   "https://github.com/someone",
		"linkedin": "",
	}, strings.NewReader("resume from stdin"))
	if err != nil {
		t.Fatalf("read inputs: %v", err)
	}

	want := map[string]string{
		"resume":   "resume from stdin",
		"job":      "job from file",
		"github":   "https://github.com/someone",
		"linkedin": "",
	}
	for flag, text := range want {
		if got[flag] != text {
			t.Fatalf("%s: got %q, want %q", flag, got[flag], text)
		}
	}
}
