package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/identity"
	"github.com/spigell/interview-coach/internal/notify"
	"github.com/spigell/interview-coach/internal/provider"
	"github.com/spigell/interview-coach/internal/secrets"
	"github.com/spigell/interview-coach/internal/submission"
)

// navigator prints where the web client would go next and remembers it.
type navigator struct {
	last string
}

func (n *navigator) Navigate(path string) {
	n.last = path
	switch {
	case path == submission.RouteSignIn:
		color.New(color.FgYellow).Fprintln(os.Stderr, "-> sign in required (set COACH_TOKEN_FILE or token-file)")
	default:
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "-> %s\n", path)
	}
}

// resolveToken loads the identity token. A missing token is not an error here:
// the submitter redirects to sign in on its own.
func resolveToken(config *Config, logger *zap.Logger) identity.TokenSource {
	token, err := secrets.Load(secrets.Source{
		Name:  "identity token",
		File:  config.TokenFile,
		Value: config.Token,
	})
	if err != nil {
		logger.Debug("no identity token", zap.Error(err))
		return identity.Static("")
	}
	return identity.Static(token)
}

func newProvider(config *Config, logger *zap.Logger) provider.Provider {
	p, err := provider.New(config.Provider, logger.With(zap.String("component", "provider")))
	if err != nil {
		logger.Fatal("creating an analysis provider", zap.Error(err))
	}
	return p
}

func newSubmitter(config *Config, logger *zap.Logger) (*submission.Submitter, *navigator) {
	nav := &navigator{}
	s, err := submission.New(submission.Options{
		Provider:  newProvider(config, logger),
		Tokens:    resolveToken(config, logger),
		Navigator: nav,
		Notifier:  notify.NewConsole(os.Stderr),
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("creating a submitter", zap.Error(err))
	}
	return s, nav
}

// readInput returns the file content, or the value itself when it is not a readable file.
func readInput(value string) (string, error) {
	return readFrom(value, os.Stdin)
}

func readFrom(value string, stdin io.Reader) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if value == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	if data, err := os.ReadFile(value); err == nil {
		return string(data), nil
	}
	return value, nil
}

// readInputs resolves several flag values at once. Only one of them may read stdin.
func readInputs(values map[string]string, stdin io.Reader) (map[string]string, error) {
	var fromStdin []string
	for flag, value := range values {
		if strings.TrimSpace(value) == "-" {
			fromStdin = append(fromStdin, "--"+flag)
		}
	}
	if len(fromStdin) > 1 {
		sort.Strings(fromStdin)
		return nil, fmt.Errorf("only one input can be read from stdin, got %s", strings.Join(fromStdin, " and "))
	}

	out := make(map[string]string, len(values))
	for flag, value := range values {
		text, err := readFrom(value, stdin)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", flag, err)
		}
		out[flag] = text
	}
	return out, nil
}

func heading(text string) {
	color.New(color.Bold).Println(text)
}

func bullets(title string, items []string) {
	if len(items) == 0 {
		return
	}
	color.New(color.FgCyan).Println(title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}
