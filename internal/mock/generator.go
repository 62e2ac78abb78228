// Package mock simulates a full motor imagery session without the
// stimulus and feedback processes. It walks the practice and main
// blocks trial by trial and writes the same status and feedback
// documents the real processes would, so the API and dashboard can be
// exercised without a display or an EEG rig.
package mock

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/mi-lab/backend/internal/docstore"
	"github.com/mi-lab/backend/internal/session"
)

const tickInterval = 250 * time.Millisecond

// timeScale compresses the configured phase durations so a simulated
// session finishes in a watchable amount of time.
const timeScale = 0.25

type Simulator struct {
	store *docstore.Store
	cfg   session.Config
	rng   *rand.Rand

	status    session.Status
	phaseLeft time.Duration
	trial     int // trial within the current stage
	block     int
	started   time.Time
}

func NewSimulator(store *docstore.Store, cfg session.Config) *Simulator {
	return &Simulator{
		store: store,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start seeds the documents and begins ticking until the session
// completes or the context is canceled.
func (s *Simulator) Start(ctx context.Context) {
	s.started = time.Now()
	s.status = session.InitialStatus(s.cfg)
	s.status.Phase = session.PhaseBaseline
	s.phaseLeft = s.phaseDuration(s.cfg.Timing.Baseline)
	s.trial = 1
	s.status.CurrentTrial = 1
	if s.cfg.Blocks.PracticeTrials == 0 {
		s.enterMainBlocks()
	}

	if err := s.store.WriteConfig(s.cfg); err != nil {
		log.Printf("mock: write config: %v", err)
	}
	s.writeDocs()

	go s.run(ctx)
}

func (s *Simulator) run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.advance(tickInterval)
			s.writeDocs()
			if s.status.State.IsTerminal() {
				log.Printf("mock: session %s after %d trials", s.status.State, s.status.CurrentTrial)
				return
			}
		}
	}
}

// advance moves the phase clock forward and steps the trial machine
// when the current phase expires.
func (s *Simulator) advance(dt time.Duration) {
	s.status.ElapsedSeconds = time.Since(s.started).Seconds()
	s.phaseLeft -= dt
	if s.phaseLeft > 0 {
		return
	}

	switch s.status.Phase {
	case session.PhaseBaseline:
		s.setPhase(session.PhaseCue, s.cfg.Timing.Cue)
	case session.PhaseCue:
		s.setPhase(session.PhaseMI, s.cfg.Timing.MI)
	case session.PhaseMI:
		rest := s.cfg.Timing.RestMin +
			s.rng.Float64()*(s.cfg.Timing.RestMax-s.cfg.Timing.RestMin)
		s.setPhase(session.PhaseRest, rest)
	case session.PhaseRest:
		s.finishTrial()
	case session.PhaseBreak:
		s.block++
		s.status.CurrentBlock = s.block
		s.status.State = session.Running
		s.trial = 1
		s.status.CurrentTrial = 1
		s.setPhase(session.PhaseBaseline, s.cfg.Timing.Baseline)
	}
}

func (s *Simulator) finishTrial() {
	// A small fraction of trials get flagged bad, the way artifact
	// rejection would in a real run.
	if s.rng.Float64() < 0.05 {
		s.status.BadTrials++
	}

	if s.status.State == session.Practice {
		if s.trial >= s.cfg.Blocks.PracticeTrials {
			s.enterMainBlocks()
		} else {
			s.trial++
			s.status.CurrentTrial = s.trial
			s.setPhase(session.PhaseBaseline, s.cfg.Timing.Baseline)
		}
		return
	}

	if s.trial >= s.cfg.Blocks.TrialsPerBlock {
		if s.block >= s.cfg.Blocks.NumBlocks {
			s.status.State = session.Completed
			s.status.Phase = session.PhaseNone
			return
		}
		s.status.State = session.Break
		s.setPhase(session.PhaseBreak, float64(s.cfg.Blocks.BreakDuration))
		return
	}

	s.trial++
	s.status.CurrentTrial = s.trial
	s.setPhase(session.PhaseBaseline, s.cfg.Timing.Baseline)
}

func (s *Simulator) enterMainBlocks() {
	s.block = 1
	s.trial = 1
	s.status.State = session.Running
	s.status.CurrentBlock = 1
	s.status.CurrentTrial = 1
	s.setPhase(session.PhaseBaseline, s.cfg.Timing.Baseline)
}

func (s *Simulator) setPhase(p session.Phase, seconds float64) {
	s.status.Phase = p
	s.phaseLeft = s.phaseDuration(seconds)
}

func (s *Simulator) phaseDuration(seconds float64) time.Duration {
	return time.Duration(seconds * timeScale * float64(time.Second))
}

func (s *Simulator) writeDocs() {
	if err := s.store.WriteStatus(s.status); err != nil {
		log.Printf("mock: write status: %v", err)
	}
	if err := s.store.WriteFeedback(s.feedback()); err != nil {
		log.Printf("mock: write feedback: %v", err)
	}
}

// feedback fabricates band power that looks plausible on the
// dashboard: slow sinusoidal drift, noise, and mu suppression over
// the contralateral channel during imagery.
func (s *Simulator) feedback() session.Feedback {
	t := time.Since(s.started).Seconds()
	stream := "obci_eeg1"

	base := 12.0 + 2.0*math.Sin(t/7.0)
	c3mu := base + s.rng.Float64()
	c4mu := base + s.rng.Float64()
	suppression := 0.0
	if s.status.Phase == session.PhaseMI {
		// Left-hand imagery suppresses mu over the right hemisphere.
		c4mu *= 0.6
		suppression = -0.4 + 0.1*s.rng.Float64()
	}

	li := 0.0
	if c3mu+c4mu > 0 {
		li = (c3mu - c4mu) / (c3mu + c4mu)
	}

	return session.Feedback{
		Timestamp:  float64(time.Now().UnixMilli()) / 1000,
		Connected:  true,
		StreamName: &stream,
		Channels: map[string]session.BandPower{
			"C3": {MuPower: c3mu, BetaPower: base * 0.4},
			"C4": {MuPower: c4mu, BetaPower: base * 0.4},
		},
		LateralityIndex: li,
		MuSuppression:   suppression,
	}
}

// DemoConfig is the session configuration the server uses when
// started in mock mode.
func DemoConfig() session.Config {
	return session.Config{
		ParticipantID:   "MOCK",
		SessionNumber:   1,
		RunNumber:       1,
		DeviceFrequency: 250,
		ShowFeedback:    true,
		Colors:          session.Colors{Left: "red", Right: "blue"},
		Timing: session.Timing{
			Baseline: 2.0,
			Cue:      1.5,
			MI:       4.0,
			RestMin:  1.5,
			RestMax:  2.5,
		},
		Blocks: session.Blocks{
			NumBlocks:      2,
			TrialsPerBlock: 10,
			PracticeTrials: 4,
			BreakDuration:  10,
		},
	}
}
