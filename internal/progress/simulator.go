// Package progress approximates analysis progress for the user while the backend works.
// Stages advance on a fixed timer; they do not measure backend work.
package progress

import (
	"context"
	"sync"
	"time"
)

const DefaultInterval = 10 * time.Second

type Stage int

const (
	StageResume Stage = iota
	StageJob
	StageSocial
	StageSynthesis
	StageComplete
)

type stageInfo struct {
	name     string
	label    string
	estimate time.Duration
}

var stages = map[Stage]stageInfo{
	StageResume:    {name: "resume", label: "Analyzing Resume", estimate: 30 * time.Second},
	StageJob:       {name: "job", label: "Analyzing Job Description", estimate: 25 * time.Second},
	StageSocial:    {name: "social", label: "Analyzing Social Profiles", estimate: 20 * time.Second},
	StageSynthesis: {name: "synthesis", label: "Synthesizing Results", estimate: 25 * time.Second},
	StageComplete:  {name: "complete", label: "Complete"},
}

func (s Stage) String() string {
	if info, ok := stages[s]; ok {
		return info.name
	}
	return "unknown"
}

func (s Stage) Label() string {
	if info, ok := stages[s]; ok {
		return info.label
	}
	return ""
}

// Estimate is the nominal duration of the stage.
func (s Stage) Estimate() time.Duration {
	return stages[s].estimate
}

type State struct {
	Stage     Stage
	StartedAt time.Time
	Stopped   bool
}

// RemainingEstimate sums the nominal durations of the current and later stages.
func (s State) RemainingEstimate() time.Duration {
	var d time.Duration
	for st := s.Stage; st < StageComplete; st++ {
		d += st.Estimate()
	}
	return d
}

// Percent is the share of the nominal total covered by finished stages.
func (s State) Percent() int {
	if s.Stage >= StageComplete {
		return 100
	}
	var total, elapsed time.Duration
	for st := StageResume; st < StageComplete; st++ {
		total += st.Estimate()
		if st < s.Stage {
			elapsed += st.Estimate()
		}
	}
	return int((elapsed*100 + total/2) / total)
}

// newTicker is swapped in tests.
var newTicker = func(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type Options struct {
	Interval time.Duration
	// OnChange must not call back into the Simulator.
	OnChange func(State)
}

type Simulator struct {
	interval time.Duration
	onChange func(State)
	now      func() time.Time

	mu    sync.Mutex
	state State
	quit  chan struct{}
	done  chan struct{}
}

func New(opts Options) *Simulator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Simulator{
		interval: opts.Interval,
		onChange: opts.OnChange,
		now:      time.Now,
		state:    State{Stopped: true},
	}
}

// Start resets the simulator to the first stage and begins advancing it.
// A running timer is stopped first.
func (s *Simulator) Start(ctx context.Context) {
	s.stop()

	tick, stopTicker := newTicker(s.interval)
	quit := make(chan struct{})
	done := make(chan struct{})

	s.mu.Lock()
	s.state = State{Stage: StageResume, StartedAt: s.now()}
	s.quit = quit
	s.done = done
	snap := s.state
	s.mu.Unlock()

	s.emit(snap)

	go func() {
		defer close(done)
		defer stopTicker()
		for {
			select {
			case <-ctx.Done():
				s.halt()
				return
			case <-quit:
				return
			case <-tick:
				s.advance()
			}
		}
	}()
}

func (s *Simulator) advance() {
	s.mu.Lock()
	if s.state.Stopped || s.state.Stage >= StageSynthesis {
		s.mu.Unlock()
		return
	}
	s.state.Stage++
	snap := s.state
	s.mu.Unlock()

	s.emit(snap)
}

// Complete force-sets the complete stage and stops the timer.
func (s *Simulator) Complete() {
	s.stop()

	s.mu.Lock()
	s.state.Stage = StageComplete
	s.state.Stopped = true
	snap := s.state
	s.mu.Unlock()

	s.emit(snap)
}

// Cancel stops the timer and keeps the stage reached so far.
func (s *Simulator) Cancel() {
	s.stop()
	s.halt()
}

func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Simulator) halt() {
	s.mu.Lock()
	if s.state.Stopped {
		s.mu.Unlock()
		return
	}
	s.state.Stopped = true
	snap := s.state
	s.mu.Unlock()

	s.emit(snap)
}

// stop ends the timer goroutine and waits for it to exit.
func (s *Simulator) stop() {
	s.mu.Lock()
	quit, done := s.quit, s.done
	s.quit, s.done = nil, nil
	s.mu.Unlock()

	if quit == nil {
		return
	}
	close(quit)
	<-done
}

func (s *Simulator) emit(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}
