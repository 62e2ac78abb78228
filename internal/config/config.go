package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Processes ProcessConfig   `yaml:"processes"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Broadcast BroadcastConfig `yaml:"broadcast"`

	// RuntimeDir holds the session exchange documents (config.json,
	// status.json, feedback.json) shared with the external processes.
	RuntimeDir string `yaml:"runtime_dir"`
	// DataDir is where the stimulus process writes marker CSVs.
	DataDir string `yaml:"data_dir"`
	// HistoryDB is the sqlite file recording finished sessions.
	HistoryDB string `yaml:"history_db"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type ProcessConfig struct {
	// Python is the interpreter used for all three external scripts.
	Python         string `yaml:"python"`
	StimulusScript string `yaml:"stimulus_script"`
	FeedbackScript string `yaml:"feedback_script"`
	// SettleWait is how long Start blocks after spawning before declaring
	// the stimulus process healthy. Early crashes within this window are
	// reported synchronously.
	SettleWait time.Duration `yaml:"settle_wait"`
	// StderrTailBytes bounds the captured stderr kept for error reports.
	StderrTailBytes int `yaml:"stderr_tail_bytes"`
}

type DiscoveryConfig struct {
	Script  string        `yaml:"script"`
	Timeout time.Duration `yaml:"timeout"`
}

type BroadcastConfig struct {
	// SnapshotInterval is how often the WS broadcaster pushes the current
	// status/feedback documents to connected dashboards.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file is fine; defaults cover local use.
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8750,
			Host: "127.0.0.1",
		},
		Processes: ProcessConfig{
			Python:          "python",
			StimulusScript:  filepath.Join("backend", "mi_stimulus.py"),
			FeedbackScript:  filepath.Join("backend", "feedback.py"),
			SettleWait:      1500 * time.Millisecond,
			StderrTailBytes: 2048,
		},
		Discovery: DiscoveryConfig{
			Script:  filepath.Join("backend", "check_streams.py"),
			Timeout: 5 * time.Second,
		},
		Broadcast: BroadcastConfig{
			SnapshotInterval: 500 * time.Millisecond,
		},
		RuntimeDir: "tmp",
		DataDir:    "data",
		HistoryDB:  filepath.Join("tmp", "history.db"),
	}
}
