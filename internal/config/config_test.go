package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/presentbetter/coach-engine/internal/session"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coach.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := session.DefaultConfig()
	if cfg.Session.PresentingTicks != want.PresentingTicks || cfg.Session.TrainingTicks != want.TrainingTicks {
		t.Fatalf("ticks = %d/%d", cfg.Session.PresentingTicks, cfg.Session.TrainingTicks)
	}
	if cfg.Session.TickInterval != 500*time.Millisecond {
		t.Fatalf("tick interval = %v", cfg.Session.TickInterval)
	}
	if cfg.Session.Gaze != want.Gaze || cfg.Session.Collector != want.Collector || cfg.Session.Curve != want.Curve {
		t.Fatalf("tuning differs from defaults: %+v", cfg.Session)
	}
	if cfg.StorePath != "presentbetter.db" || cfg.FeedAddr != ":8080" || cfg.PerceptionAddr != "" {
		t.Fatalf("unexpected outer defaults %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
session:
  presenting_ticks: 60
  tick_interval: 250ms
gesture:
  move_threshold_deg: 20
  carry_forward: false
scoring:
  high: 25
store:
  path: /var/lib/coach.db
log:
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.PresentingTicks != 60 || cfg.Session.TickInterval != 250*time.Millisecond {
		t.Fatalf("session overrides not applied: %+v", cfg.Session)
	}
	if cfg.Session.Collector.MoveThresholdDeg != 20 || cfg.Session.Collector.CarryForward {
		t.Fatalf("gesture overrides not applied: %+v", cfg.Session.Collector)
	}
	if cfg.Session.Curve.High != 25 || cfg.Session.Curve.Low != 15 {
		t.Fatalf("curve = %+v", cfg.Session.Curve)
	}
	if cfg.StorePath != "/var/lib/coach.db" || cfg.LogFormat != "json" {
		t.Fatalf("outer overrides not applied: %+v", cfg)
	}
	if cfg.Session.TrainingTicks != 40 {
		t.Fatalf("unset key lost its default: %d", cfg.Session.TrainingTicks)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "session:\n  presenting_ticks: 60\n")
	t.Setenv("PRESENTBETTER_SESSION_PRESENTING_TICKS", "90")
	t.Setenv("PRESENTBETTER_PERCEPTION_ADDR", "perception:50051")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.PresentingTicks != 90 {
		t.Fatalf("env override lost: %d", cfg.Session.PresentingTicks)
	}
	if cfg.PerceptionAddr != "perception:50051" {
		t.Fatalf("perception addr = %q", cfg.PerceptionAddr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero ticks", "session:\n  presenting_ticks: 0\n", "ticks"},
		{"inverted curve", "scoring:\n  low: 30\n  high: 20\n", "curve"},
		{"flat curve", "scoring:\n  low: 22\n  high: 22\n", "curve"},
		{"inverted bands", "training:\n  hit_low: 9\n", "bands"},
		{"tiny arm window", "gesture:\n  arm_window: 1\n", "arm_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
