// Package supervisor owns the lifecycle of the external stimulus and
// feedback processes: spawn, monitor, terminate, and classify exits. At
// most one session is live at a time; the supervisor's handles are the
// ownership token that enforces it.
package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/mi-lab/backend/internal/config"
	"github.com/mi-lab/backend/internal/docstore"
	"github.com/mi-lab/backend/internal/session"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrSessionActive is returned by Start while a previously spawned
// stimulus process is still alive.
var ErrSessionActive = errors.New("a session is already running")

// Recorder receives the final document of each finished session.
// Implementations must not block; recording is bookkeeping and never
// gates the session lifecycle.
type Recorder interface {
	Record(cfg session.Config, st session.Status)
}

// Health is a point-in-time liveness read with no side effects.
type Health struct {
	Running         bool   `json:"running"`
	FeedbackRunning bool   `json:"feedback_running"`
	LastError       string `json:"last_error,omitempty"`
}

// handle tracks one spawned child. done is the per-process lifecycle
// event channel: it is closed exactly once, after Wait returns and the
// exit fields are populated.
type handle struct {
	cmd      *exec.Cmd
	stderr   *tailBuffer
	done     chan struct{}
	exitCode int
	exitErr  error

	mu      sync.Mutex
	stopped bool // set by Stop before the kill so the watcher defers to it
}

func (h *handle) alive() bool {
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *handle) markStopped() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

func (h *handle) wasStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// pidAlive double-checks liveness at the OS level. The done channel is
// authoritative for exits we have reaped; this guards health reads
// against a child wedged between death and Wait returning.
func (h *handle) pidAlive() bool {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return false
	}
	p, err := process.NewProcess(int32(h.cmd.Process.Pid))
	if err != nil {
		return false
	}
	running, err := p.IsRunning()
	return err == nil && running
}

type Supervisor struct {
	mu    sync.Mutex
	procs config.ProcessConfig
	store *docstore.Store
	rec   Recorder

	stimulus *handle
	feedback *handle
	cfg      session.Config // config of the current/last session
	lastErr  string
}

// New creates a supervisor. rec may be nil when history recording is
// disabled.
func New(procs config.ProcessConfig, store *docstore.Store, rec Recorder) *Supervisor {
	return &Supervisor{procs: procs, store: store, rec: rec}
}

// Start validates and persists the config, writes the fresh practice
// status, spawns both external processes and waits out the settle
// interval. It blocks for at most the settle duration; a healthy session
// keeps running long after Start has returned.
func (s *Supervisor) Start(cfg session.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check, write initial status, spawn -- all under the lock, so two
	// concurrent starts cannot both pass the liveness check.
	if s.stimulus.alive() {
		return ErrSessionActive
	}

	// A feedback process left over from a crashed session must die
	// before its replacement spawns; two writers on feedback.json would
	// mix sessions.
	s.stopFeedbackLocked()

	if err := s.store.WriteConfig(cfg); err != nil {
		return err
	}
	if err := s.store.WriteStatus(session.InitialStatus(cfg)); err != nil {
		return err
	}

	stim, err := s.spawn(s.procs.StimulusScript, "stimulus")
	if err != nil {
		s.stimulus = nil
		s.lastErr = fmt.Sprintf("failed to launch stimulus process: %v", err)
		return errors.New(s.lastErr)
	}
	s.stimulus = stim
	s.cfg = cfg
	s.lastErr = ""
	go s.watchStimulus(stim, cfg)

	// Neurofeedback is optional instrumentation; its failure never blocks
	// the session.
	fb, err := s.spawn(s.procs.FeedbackScript, "feedback")
	if err != nil {
		log.Printf("supervisor: feedback process failed to launch: %v", err)
		s.feedback = nil
	} else {
		s.feedback = fb
		go func() { fb.wait() }()
	}

	// Settle wait: "spawn succeeded" and "process is healthy" are not the
	// same thing for an interpreter loading device libraries. An exit
	// inside this window fails the start synchronously.
	select {
	case <-stim.done:
		reason := stim.failureReason()
		s.lastErr = reason
		return fmt.Errorf("stimulus process exited during startup: %s", reason)
	case <-time.After(s.procs.SettleWait):
	}

	log.Printf("supervisor: session started for participant %s (S%d R%d)",
		cfg.ParticipantID, cfg.SessionNumber, cfg.RunNumber)
	return nil
}

// Stop terminates the current session. It always reports success:
// stopping an idle orchestrator, or racing a child that already exited,
// are both expected.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stimulus == nil && s.feedback == nil {
		return nil
	}

	// Capture true last-known progress before terminating anything.
	prev := s.store.ReadStatus()

	if s.stimulus != nil {
		s.stimulus.markStopped()
		s.stimulus.kill()
		s.stimulus = nil
	}
	s.stopFeedbackLocked()

	s.store.DeleteFeedback()

	if !prev.State.IsTerminal() {
		final := session.Finalize(prev)
		if err := s.store.WriteStatus(final); err != nil {
			log.Printf("supervisor: writing final status: %v", err)
		}
		s.record(s.cfg, final)
	}

	log.Printf("supervisor: session stopped")
	return nil
}

// Health reports liveness of both children and the most recent abnormal
// stimulus exit, if any, not yet superseded by a new start.
func (s *Supervisor) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Health{
		Running:         s.stimulus.alive() && s.stimulus.pidAlive(),
		FeedbackRunning: s.feedback.alive() && s.feedback.pidAlive(),
		LastError:       s.lastErr,
	}
}

// spawn starts one child with its stderr teed into a bounded tail.
func (s *Supervisor) spawn(script, name string) (*handle, error) {
	tail := newTailBuffer(s.procs.StderrTailBytes)
	cmd := exec.Command(s.procs.Python, script, "--config", s.store.ConfigPath())
	cmd.Stdout = logWriter{prefix: name}
	cmd.Stderr = io.MultiWriter(logWriter{prefix: name + " stderr"}, tail)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	log.Printf("supervisor: %s process started (pid %d)", name, cmd.Process.Pid)
	return &handle{cmd: cmd, stderr: tail, done: make(chan struct{})}, nil
}

// wait reaps the child and closes the lifecycle channel. Must be called
// exactly once per handle.
func (h *handle) wait() {
	err := h.cmd.Wait()
	h.exitErr = err
	h.exitCode = h.cmd.ProcessState.ExitCode()
	close(h.done)
}

func (h *handle) kill() {
	if h.cmd != nil && h.cmd.Process != nil {
		// Hard termination; there is no cooperative handshake with the
		// external processes. Already-dead is fine.
		_ = h.cmd.Process.Kill()
	}
}

// failureReason builds the reason string for an abnormal exit, preferring
// the captured stderr tail.
func (h *handle) failureReason() string {
	if tail := h.stderr.String(); tail != "" {
		return tail
	}
	if h.exitErr != nil {
		return h.exitErr.Error()
	}
	return fmt.Sprintf("exit code %d", h.exitCode)
}

// watchStimulus consumes the stimulus process's exit event. An exit with
// a positive code is a crash: the last error is recorded and the
// persisted status reconciled to aborted unless a terminal document is
// already in place. Signal deaths (code -1) are the stop path; Stop owns
// their reconciliation.
func (s *Supervisor) watchStimulus(h *handle, cfg session.Config) {
	h.wait()

	if h.wasStopped() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stimulus != h {
		// Superseded: a newer start owns the session documents now.
		return
	}
	s.stimulus = nil

	// The session is over either way; the feedback process must not
	// outlive it and keep rewriting feedback.json.
	s.stopFeedbackLocked()
	s.store.DeleteFeedback()

	prev := s.store.ReadStatus()
	final := prev

	if h.exitCode > 0 {
		reason := h.failureReason()
		s.lastErr = reason
		log.Printf("supervisor: stimulus process exited abnormally (code %d): %s", h.exitCode, reason)
		if !prev.State.IsTerminal() {
			final = session.Finalize(prev)
			if err := s.store.WriteStatus(final); err != nil {
				log.Printf("supervisor: writing reconciled status: %v", err)
			}
		}
	} else {
		log.Printf("supervisor: stimulus process exited (code %d)", h.exitCode)
	}

	if final.State.IsTerminal() {
		s.record(cfg, final)
	}
}

// stopFeedbackLocked kills and clears the feedback handle, if any.
// Callers hold s.mu.
func (s *Supervisor) stopFeedbackLocked() {
	if s.feedback == nil {
		return
	}
	s.feedback.markStopped()
	s.feedback.kill()
	s.feedback = nil
}

func (s *Supervisor) record(cfg session.Config, st session.Status) {
	if s.rec != nil {
		s.rec.Record(cfg, st)
	}
}
