package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeProbe writes a shell script standing in for the python probe.
func writeProbe(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probe.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProbeParsesStreams(t *testing.T) {
	script := writeProbe(t, `echo '[{"name":"UnicornEEG","type":"EEG","channels":8,"srate":250,"source_id":"un-001"},{"name":"MI_Markers","type":"Markers","channels":1,"srate":0,"source_id":"mi_markers_001"}]'`)
	p := NewProber("/bin/sh", script, 5*time.Second)

	streams := p.Probe(context.Background())
	if len(streams) != 2 {
		t.Fatalf("len(streams) = %d, want 2", len(streams))
	}
	if streams[0].Name != "UnicornEEG" {
		t.Errorf("streams[0].Name = %q, want UnicornEEG", streams[0].Name)
	}
	if streams[0].Channels != 8 {
		t.Errorf("streams[0].Channels = %d, want 8", streams[0].Channels)
	}
	if streams[1].Srate != 0 {
		t.Errorf("streams[1].Srate = %v, want 0", streams[1].Srate)
	}
}

func TestProbeEmptyList(t *testing.T) {
	script := writeProbe(t, `echo '[]'`)
	p := NewProber("/bin/sh", script, 5*time.Second)

	if streams := p.Probe(context.Background()); len(streams) != 0 {
		t.Errorf("streams = %v, want empty", streams)
	}
}

func TestProbeTimeout(t *testing.T) {
	script := writeProbe(t, `sleep 30`)
	p := NewProber("/bin/sh", script, 100*time.Millisecond)

	start := time.Now()
	streams := p.Probe(context.Background())
	elapsed := time.Since(start)

	if len(streams) != 0 {
		t.Errorf("streams = %v, want empty on timeout", streams)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Probe took %v, should be bounded by timeout", elapsed)
	}
}

func TestProbeMissingExecutable(t *testing.T) {
	p := NewProber("/nonexistent/python", "check_streams.py", time.Second)
	if streams := p.Probe(context.Background()); len(streams) != 0 {
		t.Errorf("streams = %v, want empty on launch failure", streams)
	}
}

func TestProbeGarbageOutput(t *testing.T) {
	script := writeProbe(t, `echo 'Traceback (most recent call last):'`)
	p := NewProber("/bin/sh", script, 5*time.Second)

	if streams := p.Probe(context.Background()); len(streams) != 0 {
		t.Errorf("streams = %v, want empty on garbage output", streams)
	}
}

func TestProbeNonZeroExit(t *testing.T) {
	script := writeProbe(t, `exit 3`)
	p := NewProber("/bin/sh", script, 5*time.Second)

	if streams := p.Probe(context.Background()); len(streams) != 0 {
		t.Errorf("streams = %v, want empty on probe failure", streams)
	}
}
