// Package storage persists standup updates and report snapshots.
package storage

import (
	"context"
	"errors"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Repository is the persistence collaborator of the report service.
type Repository interface {
	// GetWeeklyReport loads every update in [weekStart, weekEnd] grouped into
	// per-day entries. The summary is left empty.
	GetWeeklyReport(ctx context.Context, weekStart, weekEnd string) (*model.WeeklyReport, error)
	// GetHistory returns the latest limit days that have updates, newest first.
	GetHistory(ctx context.Context, limit int) ([]model.Entry, error)
	// SaveUpdate stores a record. A second record from the same person for
	// the same day replaces the first.
	SaveUpdate(ctx context.Context, record model.UpdateRecord) error
	// SaveReportSnapshot upserts a snapshot keyed by (WeekStart, WeekEnd).
	SaveReportSnapshot(ctx context.Context, snapshot model.ReportSnapshot) error
	// ListReportSnapshots returns up to limit snapshots, most recently updated first.
	ListReportSnapshots(ctx context.Context, limit int) ([]model.ReportSnapshot, error)
}
