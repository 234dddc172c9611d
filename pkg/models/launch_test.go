package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLaunchStatus(t *testing.T) {
	rec := &LaunchRecord{
		ID:     "test-1",
		Status: LaunchStatusRunning,
	}

	if !rec.IsRunning() {
		t.Error("Expected launch to be running")
	}
	if rec.IsTerminal() {
		t.Error("Expected launch to not be terminal")
	}

	rec.Status = LaunchStatusCompleted
	if rec.IsRunning() {
		t.Error("Expected launch to not be running")
	}
	if !rec.IsTerminal() {
		t.Error("Expected launch to be terminal")
	}

	rec.Status = LaunchStatusFailed
	if !rec.IsTerminal() {
		t.Error("Expected launch to be terminal")
	}

	rec.Status = LaunchStatusTerminated
	if !rec.IsTerminal() {
		t.Error("Expected launch to be terminal")
	}
}

func TestLaunchToSummary(t *testing.T) {
	now := time.Now()
	later := now.Add(5 * time.Minute)

	rec := &LaunchRecord{
		ID:          "test-1",
		Label:       "node",
		CommandLine: " node --version",
		WorkDir:     "/test/dir",
		Status:      LaunchStatusCompleted,
		CreatedAt:   now,
		CompletedAt: &later,
	}

	summary := rec.ToSummary()

	if summary.ID != rec.ID {
		t.Errorf("Expected ID %s, got %s", rec.ID, summary.ID)
	}
	if summary.CommandLine != rec.CommandLine {
		t.Errorf("Expected CommandLine %s, got %s", rec.CommandLine, summary.CommandLine)
	}
	if summary.Duration != "5m0s" {
		t.Errorf("Expected Duration 5m0s, got %s", summary.Duration)
	}
}

func TestLaunchToSummaryTruncatesLongCommandLine(t *testing.T) {
	rec := &LaunchRecord{
		ID:          "test-1",
		CommandLine: " cmd " + strings.Repeat("a", 200),
		CreatedAt:   time.Now(),
	}

	summary := rec.ToSummary()

	if len(summary.CommandLine) != 100 {
		t.Errorf("Expected truncated command line of 100 chars, got %d", len(summary.CommandLine))
	}
	if !strings.HasSuffix(summary.CommandLine, "...") {
		t.Error("Expected truncated command line to end with ellipsis")
	}
}

func TestLaunchRecordJSONRoundTrip(t *testing.T) {
	code := 7
	now := time.Now().UTC().Truncate(time.Second)

	rec := &LaunchRecord{
		ID:          "launch-1",
		Label:       "build",
		ProcessType: "make",
		CommandLine: " make all",
		Status:      LaunchStatusCompleted,
		ExitCode:    &code,
		CreatedAt:   now,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal record: %v", err)
	}

	var decoded LaunchRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal record: %v", err)
	}

	if decoded.ID != rec.ID || decoded.Status != rec.Status {
		t.Errorf("Round trip mismatch: %+v", decoded)
	}
	if decoded.ExitCode == nil || *decoded.ExitCode != 7 {
		t.Errorf("Expected exit code 7, got %v", decoded.ExitCode)
	}
}
