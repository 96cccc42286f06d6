package util

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/notask/pkg/colors"
	"github.com/harrisonrobin/notask/pkg/model"
)

const (
	// PagePropertyKey is the private extended property linking an event to its page.
	PagePropertyKey = "notion_page_id"

	OverduePrefix = "! "
	donePrefix    = "✓ "

	dateLayout      = "2006-01-02"
	defaultDuration = 30 * time.Minute
)

// ColorPicker assigns calendar colors to relation targets.
type ColorPicker interface {
	ColorID(classID string) string
}

// EventColor colors a task by its first class when it has one, otherwise by
// its status color.
func EventColor(task *model.Task, picker ColorPicker) string {
	if len(task.Class) > 0 && picker != nil {
		return picker.ColorID(task.Class[0].ID)
	}
	return colors.FromNotion(task.Status.Color)
}

// ConvertTaskToCalendarEvent builds the event mirroring task. Date-only due
// dates become all-day events; timed ones last until the due date's end or
// thirty minutes.
func ConvertTaskToCalendarEvent(task *model.Task, colorID string, now time.Time) (*calendar.Event, error) {
	if task == nil {
		return nil, fmt.Errorf("could not convert nil Task")
	}

	start, allDay, err := task.DueDate.StartTime()
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}

	event := &calendar.Event{
		Summary:     task.Name,
		ColorId:     colorID,
		Description: describe(task),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{PagePropertyKey: task.ID},
		},
	}

	var end time.Time
	if task.DueDate.End != nil {
		if end, _, err = (model.DateValue{Start: *task.DueDate.End}).StartTime(); err != nil {
			return nil, fmt.Errorf("task %s: %w", task.ID, err)
		}
	}

	if allDay {
		if end.IsZero() || end.Before(start) {
			end = start
		}
		// All-day end dates are exclusive.
		event.Start = &calendar.EventDateTime{Date: start.Format(dateLayout)}
		event.End = &calendar.EventDateTime{Date: end.AddDate(0, 0, 1).Format(dateLayout)}
	} else {
		if end.IsZero() || !end.After(start) {
			end = start.Add(defaultDuration)
		}
		event.Start = &calendar.EventDateTime{DateTime: start.UTC().Format(time.RFC3339)}
		event.End = &calendar.EventDateTime{DateTime: end.UTC().Format(time.RFC3339)}
	}

	switch {
	case IsDone(task.Status):
		event.Summary = donePrefix + task.Name
	case dueAt(start, allDay).Before(now):
		event.Summary = OverduePrefix + task.Name
	}

	return event, nil
}

// DueAt is the moment a task becomes overdue: its start time, or the end of
// the day for all-day due dates.
func DueAt(d model.DateValue) (time.Time, error) {
	start, allDay, err := d.StartTime()
	if err != nil {
		return time.Time{}, err
	}
	return dueAt(start, allDay), nil
}

func dueAt(start time.Time, allDay bool) time.Time {
	if allDay {
		return start.AddDate(0, 0, 1)
	}
	return start
}

// IsDone reports whether a status marks the task finished.
func IsDone(status model.SelectOption) bool {
	switch strings.ToLower(status.Name) {
	case "done", "complete", "completed":
		return true
	}
	return false
}

func describe(task *model.Task) string {
	var sb strings.Builder

	if len(task.Type) > 0 {
		for _, t := range task.Type {
			fmt.Fprintf(&sb, "#%s ", strings.ReplaceAll(t.Name, " ", "_"))
		}
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Status: %s\n", task.Status.Name)
	if len(task.Class) > 0 {
		names := make([]string, 0, len(task.Class))
		for _, c := range task.Class {
			if c.Name != nil && *c.Name != "" {
				names = append(names, *c.Name)
			} else {
				names = append(names, c.ID)
			}
		}
		fmt.Fprintf(&sb, "Class: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, "Notion: %s\n", task.ID)
	return sb.String()
}

// OverdueSummary flags a summary as overdue, once.
func OverdueSummary(summary string) string {
	if strings.HasPrefix(summary, OverduePrefix) {
		return summary
	}
	return OverduePrefix + strings.TrimPrefix(summary, donePrefix)
}

// EventNeedsUpdate returns a patch holding the fields of target that differ
// from existing, or nil when the event is already up to date.
func EventNeedsUpdate(existing, target *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}

	sameStart, err := sameTime(existing.Start, target.Start)
	if err != nil {
		return nil, err
	}
	sameEnd, err := sameTime(existing.End, target.End)
	if err != nil {
		return nil, err
	}
	if !sameStart || !sameEnd {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

func sameTime(a, b *calendar.EventDateTime) (bool, error) {
	if a == nil || b == nil {
		return a == b, nil
	}
	if a.Date != "" || b.Date != "" {
		return a.Date == b.Date, nil
	}
	ta, err := time.Parse(time.RFC3339, a.DateTime)
	if err != nil {
		return false, fmt.Errorf("could not parse event time %q: %w", a.DateTime, err)
	}
	tb, err := time.Parse(time.RFC3339, b.DateTime)
	if err != nil {
		return false, fmt.Errorf("could not parse event time %q: %w", b.DateTime, err)
	}
	return ta.Equal(tb), nil
}
