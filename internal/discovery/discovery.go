// Package discovery runs the short-lived LSL stream probe and parses its
// output. Discovery is advisory: every failure mode degrades to an empty
// result so a hung or missing probe can never take down a poll.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os/exec"
	"time"

	"github.com/mi-lab/backend/internal/session"
)

type Prober struct {
	python  string
	script  string
	timeout time.Duration
}

func NewProber(python, script string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{python: python, script: script, timeout: timeout}
}

// Probe invokes the discovery script and returns the streams it
// advertises. The probe is bounded by the configured timeout on top of
// the caller's context; timeouts, launch failures and unparseable output
// all yield an empty slice and nil error.
func (p *Prober) Probe(ctx context.Context) []session.Stream {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.python, p.script)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Printf("discovery: probe timed out after %v", p.timeout)
		} else {
			log.Printf("discovery: probe failed: %v", err)
		}
		return nil
	}

	streams := parseStreams(stdout.Bytes())
	return streams
}

// parseStreams decodes the probe's JSON array. The probe prints a single
// line; anything else is treated as no streams.
func parseStreams(out []byte) []session.Stream {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil
	}
	var streams []session.Stream
	if err := json.Unmarshal(out, &streams); err != nil {
		log.Printf("discovery: unparseable probe output: %v", err)
		return nil
	}
	return streams
}
