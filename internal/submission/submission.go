// Package submission validates user input, sends it to the analysis provider and
// decides where the user goes next.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/identity"
	"github.com/spigell/interview-coach/internal/notify"
	"github.com/spigell/interview-coach/internal/provider"
)

const (
	RouteHome   = "/"
	RouteSignIn = "/sign-in"
)

func ReportRoute(id string) string    { return "/report/" + id }
func InterviewRoute(id string) string { return "/interview/" + id }
func FeedbackRoute(id string) string  { return "/feedback/" + id }

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Progress is the part of the progress simulator used while an analysis runs.
type Progress interface {
	Start(ctx context.Context)
	Complete()
	Cancel()
}

type Options struct {
	Provider  provider.Provider
	Tokens    identity.TokenSource
	Navigator Navigator
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

type Submitter struct {
	provider  provider.Provider
	tokens    identity.TokenSource
	nav       Navigator
	notifier  notify.Notifier
	logger    *zap.Logger
	validator *validator.Validate
}

func New(opts Options) (*Submitter, error) {
	if opts.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if opts.Tokens == nil {
		opts.Tokens = identity.Static("")
	}
	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(string) {})
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Submitter{
		provider:  opts.Provider,
		tokens:    opts.Tokens,
		nav:       opts.Navigator,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		validator: newValidator(),
	}, nil
}

// token returns the bearer token or sends the user to sign in.
func (s *Submitter) token(ctx context.Context) (string, error) {
	token, err := s.tokens.Token(ctx)
	if err == nil && strings.TrimSpace(token) == "" {
		err = identity.ErrUnauthorized
	}
	if err != nil {
		s.logger.Info("no identity token, redirecting to sign in", zap.Error(err))
		s.nav.Navigate(RouteSignIn)
		if !errors.Is(err, identity.ErrUnauthorized) {
			err = fmt.Errorf("%w: %v", identity.ErrUnauthorized, err)
		}
		return "", err
	}
	return token, nil
}

// fail reports a failed provider call. Only authentication failures navigate.
func (s *Submitter) fail(err error, fallback string) error {
	if errors.Is(err, identity.ErrUnauthorized) {
		s.nav.Navigate(RouteSignIn)
		return err
	}

	s.logger.Warn(strings.ToLower(fallback), zap.Error(err))
	s.notifier.Notify(notify.LevelError, backend.MessageOr(err, fallback))
	return err
}

// failLoad reports a failed detail page load. Missing records go to the landing page.
func (s *Submitter) failLoad(err error, notFound, fallback string) error {
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		s.nav.Navigate(RouteSignIn)
	case errors.Is(err, backend.ErrNotFound):
		s.notifier.Notify(notify.LevelError, notFound)
		s.nav.Navigate(RouteHome)
	default:
		s.logger.Warn(strings.ToLower(fallback), zap.Error(err))
		s.notifier.Notify(notify.LevelError, fallback)
	}
	return err
}
