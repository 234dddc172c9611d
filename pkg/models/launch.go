// Package models defines the core domain types for the lanzadera launcher.
package models

import (
	"time"
)

// LaunchStatus represents the current state of a launched process.
type LaunchStatus string

const (
	LaunchStatusRunning    LaunchStatus = "running"
	LaunchStatusCompleted  LaunchStatus = "completed"
	LaunchStatusFailed     LaunchStatus = "failed"
	LaunchStatusTerminated LaunchStatus = "terminated"
)

// LaunchRecord describes a single external process launch. It carries the
// display/audit attributes of the process and is what the registry persists.
type LaunchRecord struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	ProcessType string       `json:"process_type"`
	CommandLine string       `json:"command_line"`
	WorkDir     string       `json:"work_dir,omitempty"`
	Status      LaunchStatus `json:"status"`
	PID         int          `json:"pid,omitempty"`
	ExitCode    *int         `json:"exit_code,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// IsTerminal returns true if the launch reached a final state.
func (r *LaunchRecord) IsTerminal() bool {
	return r.Status == LaunchStatusCompleted ||
		r.Status == LaunchStatusFailed ||
		r.Status == LaunchStatusTerminated
}

// IsRunning returns true if the launched process is still alive.
func (r *LaunchRecord) IsRunning() bool {
	return r.Status == LaunchStatusRunning
}

// LaunchSummary provides a condensed view of a launch for listing.
type LaunchSummary struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	CommandLine string       `json:"command_line"`
	Status      LaunchStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Duration    string       `json:"duration,omitempty"`
}

// ToSummary converts a LaunchRecord to a LaunchSummary.
func (r *LaunchRecord) ToSummary() LaunchSummary {
	summary := LaunchSummary{
		ID:          r.ID,
		Label:       r.Label,
		CommandLine: truncateString(r.CommandLine, 100),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.CompletedAt != nil {
		summary.Duration = r.CompletedAt.Sub(r.CreatedAt).String()
	}
	return summary
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// LaunchRequest represents an API request to launch a new process.
type LaunchRequest struct {
	CommandLine string            `json:"command_line,omitempty"`
	Command     []string          `json:"command,omitempty"`
	WorkDir     string            `json:"work_dir,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Label       string            `json:"label,omitempty"`
}

// ListRequest represents a request to list launches.
type ListRequest struct {
	Status []LaunchStatus `json:"status,omitempty"`
	Limit  int            `json:"limit,omitempty"`
	Offset int            `json:"offset,omitempty"`
}
