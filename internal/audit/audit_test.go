package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newFileLogger(t *testing.T, level string) (Recorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	rec, err := NewLogger(Config{Enabled: true, Level: level, Output: path})
	if err != nil {
		t.Fatal(err)
	}
	return rec, path
}

func readEvents(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("audit line is not JSON: %q", sc.Text())
		}
		events = append(events, e)
	}
	return events
}

func TestLoggerWritesJSONLines(t *testing.T) {
	rec, path := newFileLogger(t, "standard")
	rec.ScanBypassed("scan", 3)
	rec.SecretDetected("aws_access_key", "critical", "~/.aws/credentials")
	rec.SecretResolved("DB_PASSWORD", "1password", true)
	rec.BackendAuth("bitwarden", errors.New("vault locked"))
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, path)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0]["event"] != "scan_bypassed" || events[0]["files"] != float64(3) {
		t.Errorf("bypass event = %v", events[0])
	}
	if events[1]["pattern"] != "aws_access_key" {
		t.Errorf("detection event = %v", events[1])
	}
	if events[2]["cached"] != true {
		t.Errorf("resolution event = %v", events[2])
	}
	if events[3]["error"] != "vault locked" {
		t.Errorf("auth event = %v", events[3])
	}
	for _, e := range events {
		if e["stream"] != "audit" {
			t.Errorf("event missing stream marker: %v", e)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"minimal", []string{"scan_bypassed", "secret_detected"}},
		{"standard", []string{"scan_bypassed", "secret_detected", "secret_redacted", "scan_completed"}},
		{"verbose", []string{"scan_bypassed", "secret_detected", "secret_redacted", "mapping_updated", "scan_completed"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			rec, path := newFileLogger(t, tt.level)
			rec.ScanBypassed("push", 1)
			rec.SecretDetected("github_token", "high", "~/.netrc")
			rec.SecretRedacted("~/.netrc", 1)
			rec.MappingUpdated("API_TOKEN", "keystore")
			rec.ScanCompleted(5, 2)
			rec.Close()

			events := readEvents(t, path)
			if len(events) != len(tt.want) {
				t.Fatalf("got %d events, want %d: %v", len(events), len(tt.want), events)
			}
			for i, e := range events {
				if e["event"] != tt.want[i] {
					t.Errorf("event[%d] = %v, want %s", i, e["event"], tt.want[i])
				}
			}
		})
	}
}

func TestDisabledConfigYieldsNop(t *testing.T) {
	rec, err := NewLogger(Config{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.(NopRecorder); !ok {
		t.Errorf("disabled audit returned %T, want NopRecorder", rec)
	}
	rec.ScanBypassed("scan", 1)
	if err := rec.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled || cfg.Level != "standard" || cfg.Output != "stderr" {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
}
