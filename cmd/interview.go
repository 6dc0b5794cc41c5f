package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/call"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/notify"
	"github.com/spigell/interview-coach/internal/secrets"
	"github.com/spigell/interview-coach/internal/utils"
	"github.com/spigell/interview-coach/internal/voice"
)

const (
	PromptMute     = "Mute"
	PromptUnmute   = "Unmute"
	PromptEndCall  = "End call"
	PromptStatus   = "Show status"
	PromptResubmit = "Resubmit transcript"
	PromptQuit     = "Quit"
)

var errQuit = errors.New("quit requested")

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Generate and run mock interviews",
}

var interviewGenerateCmd = &cobra.Command{
	Use:   "generate <analysis-id>",
	Short: "Generate interview questions from an analysis",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		generateInterview(args[0])
	},
}

var interviewStartCmd = &cobra.Command{
	Use:   "start <interview-id>",
	Short: "Start a voice call for an interview",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		startInterview(args[0])
	},
}

func init() {
	interviewCmd.AddCommand(interviewGenerateCmd)
	interviewCmd.AddCommand(interviewStartCmd)
	rootCmd.AddCommand(interviewCmd)
}

func generateInterview(analysisID string) {
	logger, config := setup()
	s, _ := newSubmitter(config, logger)

	created, err := s.GenerateInterview(context.Background(), analysisID)
	if err != nil {
		logger.Debug("generating interview", zap.Error(err))
		os.Exit(1)
	}

	heading("Interview questions")
	for i, q := range created.InitialQuestions {
		fmt.Printf("%2d. %s\n", i+1, q)
	}
	fmt.Printf("\nStart the call: %s interview start %s\n", app, created.InterviewID)
}

func startInterview(interviewID string) {
	log, config := setup()
	log = logger.WithSession(log, "", interviewID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, nav := newSubmitter(config, log)

	details, err := s.LoadInterview(ctx, interviewID)
	if err != nil {
		log.Debug("loading interview", zap.Error(err))
		os.Exit(1)
	}

	client, err := newVoiceClient(config, log)
	if err != nil {
		log.Fatal("creating a voice client", zap.Error(err),
			zap.String("hint", "set voice.url and voice.public-key-file in the configuration file"),
		)
	}

	view := &callView{}
	ctrl, err := call.New(ctx, call.Options{
		Client:   client,
		Handoff:  s.Handoff(interviewID),
		Settings: config.Call,
		Notifier: notify.NewConsole(os.Stderr),
		Logger:   log.With(zap.String("component", "call")),
		OnChange: view.render,
	})
	if err != nil {
		log.Fatal("creating a call controller", zap.Error(err))
	}
	defer ctrl.Close()

	if err := ctrl.Start(ctx, details.QuestionTexts()); err != nil {
		log.Fatal("starting the call", zap.Error(err))
	}

	for {
		if err := settle(ctx, ctrl); err != nil {
			log.Warn("waiting for the transcript handoff", zap.Error(err))
		}

		snap := ctrl.Snapshot()
		if snap.State == call.StateEnded && snap.Submitted {
			log.Info("interview finished", zap.String("next", nav.last))
			return
		}

		if err := handleCallAction(ctx, ctrl, snap, log); err != nil {
			if errors.Is(err, errQuit) {
				if snap.Active() {
					_ = ctrl.EndCall(ctx)
				}
				return
			}
			log.Warn("call action failed", zap.Error(err))
		}
	}
}

func newVoiceClient(config *Config, log *zap.Logger) (*voice.Client, error) {
	if config.Voice == nil {
		return nil, errors.New("voice section is not configured")
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "voice public key",
		File:  config.Voice.PublicKeyFile,
		Value: config.Voice.PublicKey,
	})
	if err != nil {
		return nil, err
	}

	return voice.New(voice.Options{
		URL:         config.Voice.URL,
		PublicKey:   key,
		ReadTimeout: config.Voice.ReadTimeout,
		Logger:      log.With(zap.String("component", "voice")),
	})
}

// settle waits while the transcript is being handed off.
func settle(ctx context.Context, ctrl *call.Controller) error {
	return utils.WaitUntil(ctx, 200*time.Millisecond, 150, func() bool {
		return ctrl.Snapshot().State != call.StateEnding
	})
}

func handleCallAction(ctx context.Context, ctrl *call.Controller, snap call.Snapshot, log *zap.Logger) error {
	var items []string
	switch {
	case snap.Active():
		mute := PromptMute
		if snap.Muted {
			mute = PromptUnmute
		}
		items = []string{mute, PromptEndCall, PromptStatus, PromptQuit}
	case snap.State == call.StateEnded:
		items = []string{PromptResubmit, PromptQuit}
	default:
		items = []string{PromptStatus, PromptQuit}
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Call %s", snap.State),
		Items: items,
	}
	_, action, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return errQuit
		}
		return err
	}

	switch action {
	case PromptMute, PromptUnmute:
		return ctrl.ToggleMute()
	case PromptEndCall:
		return ctrl.EndCall(ctx)
	case PromptResubmit:
		return ctrl.Resubmit(ctx)
	case PromptStatus:
		printStatus(ctrl.Snapshot())
		return nil
	case PromptQuit:
		if snap.State == call.StateEnded && !snap.Submitted {
			log.Warn("quitting without submitting the transcript",
				zap.Int("messages", snap.Messages),
			)
		}
		return errQuit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printStatus(snap call.Snapshot) {
	fmt.Printf("state: %s, muted: %t, messages: %d\n", snap.State, snap.Muted, snap.Messages)
	fmt.Printf("interviewer level: %s\n", meter(snap.AIAudioLevel))
	fmt.Printf("your level:        %s\n", meter(snap.UserAudioLevel))
}

func meter(level float64) string {
	const width = 20
	n := int(level * width)
	return "[" + strings.Repeat("#", n) + strings.Repeat(" ", width-n) + "]"
}

// callView prints state changes and finished captions, skipping level updates.
type callView struct {
	mu        sync.Mutex
	state     call.State
	started   bool
	assistant string
	user      string
}

func (v *callView) render(snap call.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.started || snap.State != v.state {
		v.started = true
		v.state = snap.State
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "call %s\n", snap.State)
	}

	if snap.AssistantCaption != "" && snap.AssistantCaption != v.assistant {
		v.assistant = snap.AssistantCaption
		color.New(color.FgCyan).Fprintf(os.Stderr, "interviewer: %s\n", v.assistant)
	}
	if snap.UserCaption != "" && snap.UserCaption != v.user {
		v.user = snap.UserCaption
		color.New(color.FgGreen).Fprintf(os.Stderr, "you: %s\n", v.user)
	}
}
