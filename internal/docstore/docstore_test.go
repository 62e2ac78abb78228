package docstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mi-lab/backend/internal/session"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestReadStatusMissing(t *testing.T) {
	s := newStore(t)
	st := s.ReadStatus()
	if st.State != session.Idle {
		t.Errorf("missing status.json: State = %q, want %q", st.State, session.Idle)
	}
	if st.CurrentTrial != 0 || st.TotalTrials != 0 {
		t.Errorf("missing status.json should yield zeroed counters, got %+v", st)
	}
}

func TestReadStatusCorrupt(t *testing.T) {
	s := newStore(t)
	// Simulates a child killed mid-write.
	path := filepath.Join(filepath.Dir(s.ConfigPath()), "status.json")
	if err := os.WriteFile(path, []byte(`{"state": "runn`), 0644); err != nil {
		t.Fatal(err)
	}

	st := s.ReadStatus()
	if st.State != session.Idle {
		t.Errorf("corrupt status.json: State = %q, want %q", st.State, session.Idle)
	}
}

func TestWriteReadStatusRoundTrip(t *testing.T) {
	s := newStore(t)
	want := session.Status{
		State:        session.Running,
		Phase:        session.PhaseMI,
		CurrentTrial: 25,
		TotalTrials:  50,
		CurrentBlock: 1,
		TotalBlocks:  2,
	}
	if err := s.WriteStatus(want); err != nil {
		t.Fatal(err)
	}
	if got := s.ReadStatus(); got != want {
		t.Errorf("ReadStatus() = %+v, want %+v", got, want)
	}
}

func TestWriteStatusLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteStatus(session.IdleStatus()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "status.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("runtime dir contents = %v, want [status.json]", names)
	}
}

func TestReadFeedbackMissing(t *testing.T) {
	s := newStore(t)
	fb := s.ReadFeedback()
	if fb.Connected {
		t.Error("missing feedback.json: Connected = true, want false")
	}
	if fb.Error == nil {
		t.Error("missing feedback.json should carry an explanatory error")
	}
}

func TestReadFeedbackExternalDocument(t *testing.T) {
	s := newStore(t)
	// A document as the feedback process writes it.
	doc := `{"timestamp": 1735000000.0, "connected": true, "stream_name": "UnicornEEG",
		"channels": {"C3": {"mu_power": 1.1, "beta_power": 0.4}, "C4": {"mu_power": 0.9, "beta_power": 0.3}},
		"laterality_index": -0.1, "mu_suppression": 0.35, "error": null}`
	path := filepath.Join(filepath.Dir(s.ConfigPath()), "feedback.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	fb := s.ReadFeedback()
	if !fb.Connected {
		t.Error("Connected = false, want true")
	}
	if fb.Channels["C4"].MuPower != 0.9 {
		t.Errorf("C4 mu_power = %v, want 0.9", fb.Channels["C4"].MuPower)
	}
}

func TestDeleteFeedback(t *testing.T) {
	s := newStore(t)
	path := filepath.Join(filepath.Dir(s.ConfigPath()), "feedback.json")
	if err := os.WriteFile(path, []byte(`{"connected": true}`), 0644); err != nil {
		t.Fatal(err)
	}

	s.DeleteFeedback()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("feedback.json still present after DeleteFeedback")
	}

	// Deleting again must not panic or report anything.
	s.DeleteFeedback()
}

func TestWriteConfig(t *testing.T) {
	s := newStore(t)
	cfg := session.Config{
		ParticipantID:   "P001",
		SessionNumber:   2,
		DeviceFrequency: 250,
	}
	if err := s.WriteConfig(cfg); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(s.ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["participant_id"] != "P001" {
		t.Errorf("participant_id = %v, want P001", raw["participant_id"])
	}
}
