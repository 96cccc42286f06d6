package google

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/notask/pkg/colors"
	"github.com/harrisonrobin/notask/pkg/index"
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/overdue"
	"github.com/harrisonrobin/notask/pkg/util"
)

// SyncReport counts what a mirror run did.
type SyncReport struct {
	Synced  int `json:"synced"`
	Flagged int `json:"flagged"`
	Failed  int `json:"failed"`
}

// Mirror keeps a calendar in step with the upcoming tasks. A failure on one
// task is logged and counted, and the run carries on.
type Mirror struct {
	Calendar *CalendarClient
	Index    *index.EventIndex
	Overdue  *overdue.Table
	Colors   *colors.ColorCache
	Now      func() time.Time
	Logger   *slog.Logger
}

// Sync flags events whose tasks went overdue since the last run, then mirrors
// tasks. State files are saved even when some tasks failed.
func (m *Mirror) Sync(ctx context.Context, tasks []model.Task) (SyncReport, error) {
	var report SyncReport
	now := m.now()

	for _, entry := range m.Overdue.Sweep(now) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		patch := &calendar.Event{Summary: util.OverdueSummary(entry.Summary)}
		if _, err := m.Calendar.PatchEvent(ctx, entry.EventID, patch); err != nil {
			m.Logger.Warn("could not flag overdue event", "event", entry.EventID, "error", err)
			report.Failed++
			continue
		}
		report.Flagged++
	}

	var picker util.ColorPicker
	if m.Colors != nil {
		picker = m.Colors
	}

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		task := &tasks[i]

		event, err := m.Calendar.SyncTask(ctx, task, util.EventColor(task, picker), now)
		if err != nil {
			m.Logger.Warn("could not mirror task", "page", task.ID, "name", task.Name, "error", err)
			report.Failed++
			continue
		}
		report.Synced++

		due, err := util.DueAt(task.DueDate)
		if err != nil || util.IsDone(task.Status) {
			m.Overdue.Remove(task.ID)
			continue
		}
		m.Overdue.Update(task.ID, event.Id, event.Summary, due)
	}

	m.Logger.Info("calendar sync finished", "synced", report.Synced, "flagged", report.Flagged, "failed", report.Failed)
	return report, m.save()
}

func (m *Mirror) save() error {
	var errs []error
	if m.Index != nil {
		errs = append(errs, m.Index.Save())
	}
	errs = append(errs, m.Overdue.Save())
	if m.Colors != nil {
		errs = append(errs, m.Colors.Save())
	}
	return errors.Join(errs...)
}

func (m *Mirror) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
