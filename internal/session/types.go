package session

import (
	"errors"
	"fmt"
)

// Config is the session configuration written once to config.json at
// start. Field names are the wire contract read by the stimulus and
// feedback processes; the orchestrator treats the document as immutable
// for the session's duration.
type Config struct {
	ParticipantID   string  `json:"participant_id"`
	SessionNumber   int     `json:"session_number"`
	RunNumber       int     `json:"run_number"`
	DeviceFrequency float64 `json:"device_frequency"`
	Fullscreen      bool    `json:"fullscreen"`
	Screen          int     `json:"screen"`
	ShowFeedback    bool    `json:"show_feedback"`
	Colors          Colors  `json:"colors"`
	Timing          Timing  `json:"timing"`
	Blocks          Blocks  `json:"blocks"`
	Notes           string  `json:"notes,omitempty"`
}

// Colors holds the per-class cue colors as hex strings (e.g. "#4A9FD9").
type Colors struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Timing holds per-phase durations in seconds. The rest duration is drawn
// uniformly from [RestMin, RestMax) by the stimulus process.
type Timing struct {
	Baseline float64 `json:"baseline"`
	Cue      float64 `json:"cue"`
	MI       float64 `json:"mi"`
	RestMin  float64 `json:"rest_min"`
	RestMax  float64 `json:"rest_max"`
}

// Blocks describes the session's block structure. BreakDuration is in
// seconds.
type Blocks struct {
	NumBlocks      int `json:"num_blocks"`
	TrialsPerBlock int `json:"trials_per_block"`
	PracticeTrials int `json:"practice_trials"`
	BreakDuration  int `json:"break_duration"`
}

var (
	ErrOddTrials = errors.New("trials_per_block must be even (sessions are balanced between left and right)")
	ErrRestRange = errors.New("rest_min must be less than rest_max")
)

// Validate checks the invariants a config must satisfy before any
// process is spawned.
func (c *Config) Validate() error {
	if c.ParticipantID == "" {
		return errors.New("participant_id is required")
	}
	if c.SessionNumber < 1 {
		return fmt.Errorf("session_number must be >= 1, got %d", c.SessionNumber)
	}
	if c.DeviceFrequency <= 0 {
		return fmt.Errorf("device_frequency must be positive, got %v", c.DeviceFrequency)
	}
	if c.Blocks.NumBlocks < 1 {
		return fmt.Errorf("num_blocks must be >= 1, got %d", c.Blocks.NumBlocks)
	}
	if c.Blocks.TrialsPerBlock < 2 {
		return fmt.Errorf("trials_per_block must be >= 2, got %d", c.Blocks.TrialsPerBlock)
	}
	if c.Blocks.TrialsPerBlock%2 != 0 {
		return ErrOddTrials
	}
	if c.Blocks.PracticeTrials < 0 {
		return fmt.Errorf("practice_trials must be >= 0, got %d", c.Blocks.PracticeTrials)
	}
	if c.Timing.Baseline <= 0 || c.Timing.Cue <= 0 || c.Timing.MI <= 0 {
		return errors.New("baseline, cue and mi durations must be positive")
	}
	if c.Timing.RestMin <= 0 {
		return fmt.Errorf("rest_min must be positive, got %v", c.Timing.RestMin)
	}
	if c.Timing.RestMin >= c.Timing.RestMax {
		return ErrRestRange
	}
	return nil
}

// Status is the live or terminal session state exchanged through
// status.json. The stimulus process overwrites it continuously while it
// runs; the orchestrator writes only the initial practice document and,
// on stop or crash, the terminal aborted one.
type Status struct {
	State          State   `json:"state"`
	Phase          Phase   `json:"phase"`
	CurrentTrial   int     `json:"current_trial"`
	TotalTrials    int     `json:"total_trials"`
	CurrentBlock   int     `json:"current_block"`
	TotalBlocks    int     `json:"total_blocks"`
	BadTrials      int     `json:"bad_trials"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	OutputFile     string  `json:"output_file"`
}

// IdleStatus is the canonical document served when no status.json exists,
// i.e. a fresh environment before any session has been started.
func IdleStatus() Status {
	return Status{State: Idle, Phase: PhaseNone}
}

// InitialStatus is the practice-state document persisted before the
// stimulus process is spawned, so observers never read a stale
// prior-session document as current.
func InitialStatus(cfg Config) Status {
	return Status{
		State:       Practice,
		Phase:       PhaseNone,
		TotalTrials: cfg.Blocks.TrialsPerBlock,
		TotalBlocks: cfg.Blocks.NumBlocks,
	}
}

// Feedback is the latest neurofeedback reading exchanged through
// feedback.json. Owned exclusively by the feedback process; the
// orchestrator only ever deletes the document on stop.
type Feedback struct {
	Timestamp       float64              `json:"timestamp"`
	Connected       bool                 `json:"connected"`
	StreamName      *string              `json:"stream_name"`
	Channels        map[string]BandPower `json:"channels"`
	LateralityIndex float64              `json:"laterality_index"`
	MuSuppression   float64              `json:"mu_suppression"`
	Error           *string              `json:"error"`
}

// BandPower holds the mu and beta band power for one channel.
type BandPower struct {
	MuPower   float64 `json:"mu_power"`
	BetaPower float64 `json:"beta_power"`
}

// DisconnectedFeedback is the canonical snapshot served when no
// feedback.json exists. Disconnection is the steady default for this
// document, not an error path.
func DisconnectedFeedback(msg string) Feedback {
	return Feedback{
		Connected: false,
		Channels: map[string]BandPower{
			"C3": {},
			"C4": {},
		},
		Error: &msg,
	}
}

// Stream describes a network-discoverable biosignal source. Never
// persisted; recomputed on each discovery probe.
type Stream struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Channels int     `json:"channels"`
	Srate    float64 `json:"srate"`
	SourceID string  `json:"source_id"`
}
