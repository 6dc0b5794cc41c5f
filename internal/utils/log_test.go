package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in    string
		limit int
		want  string
	}{
		"non-positive limit":  {in: "assistant: Hello", limit: 0, want: ""},
		"fits":                {in: "user: Hi", limit: 20, want: "user: Hi"},
		"cut":                 {in: "assistant: Tell me about yourself", limit: 15, want: "assistant: Tell..."},
		"transcript newlines": {in: "assistant: Hello\nuser: Hi\n", limit: 50, want: "assistant: Hello user: Hi"},
		"padding":             {in: "\t  frame  \n", limit: 3, want: "fra..."},
		"multibyte runes":     {in: "привет мир", limit: 6, want: "привет..."},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.in, tt.limit); got != tt.want {
				t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}
