package model

import "time"

// SnapshotStatus is the lifecycle state of a stored report.
type SnapshotStatus string

const (
	StatusPending   SnapshotStatus = "pending"
	StatusGenerated SnapshotStatus = "generated"
	StatusFailed    SnapshotStatus = "failed"
)

// ReportSnapshot is the persisted form of a weekly report. At most one
// snapshot exists per (WeekStart, WeekEnd).
type ReportSnapshot struct {
	ID            string         `json:"id"`
	WeekStart     string         `json:"weekStart"`
	WeekEnd       string         `json:"weekEnd"`
	TotalUpdates  int            `json:"totalUpdates"`
	UniqueMembers int            `json:"uniqueMembers"`
	ReportData    *WeeklyReport  `json:"reportData"`
	Status        SnapshotStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewSnapshot builds a generated snapshot from a report.
func NewSnapshot(r *WeeklyReport) ReportSnapshot {
	return ReportSnapshot{
		WeekStart:     r.WeekStart,
		WeekEnd:       r.WeekEnd,
		TotalUpdates:  r.TotalUpdates(),
		UniqueMembers: len(r.UniqueMembers()),
		ReportData:    r,
		Status:        StatusGenerated,
	}
}

// FailedSnapshot records a generation failure for a week.
func FailedSnapshot(weekStart, weekEnd string, err error) ReportSnapshot {
	s := ReportSnapshot{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Status:    StatusFailed,
	}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}
