package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/notask/pkg/index"
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/util"
)

// CalendarClient is a Google Calendar API client.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	logger     *slog.Logger
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, logger *slog.Logger) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx, logger: logger}
}

// SyncTask creates the event mirroring task or patches the fields that changed.
func (c *CalendarClient) SyncTask(ctx context.Context, task *model.Task, colorID string, now time.Time) (*calendar.Event, error) {
	event, err := util.ConvertTaskToCalendarEvent(task, colorID, now)
	if err != nil {
		return nil, err
	}

	existingEvent, err := c.findEvent(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}

	if existingEvent != nil {
		patch, err := util.EventNeedsUpdate(existingEvent, event)
		if err != nil {
			return nil, fmt.Errorf("could not compare task %s with its calendar event: %w", task.ID, err)
		}
		if patch == nil {
			c.logger.Debug("event up to date", "page", task.ID, "event", existingEvent.Id)
			c.remember(task.ID, existingEvent.Id)
			return existingEvent, nil
		}
		updatedEvent, err := c.PatchEvent(ctx, existingEvent.Id, patch)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("patched event", "page", task.ID, "event", updatedEvent.Id)
		c.remember(task.ID, updatedEvent.Id)
		return updatedEvent, nil
	}

	createdEvent, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not create event for task %s: %w", task.ID, err)
	}
	c.logger.Debug("created event", "page", task.ID, "event", createdEvent.Id)
	c.remember(task.ID, createdEvent.Id)
	return createdEvent, nil
}

// findEvent tries the local index first and falls back to searching the
// calendar by extended property. A stale index entry is dropped, and so are
// duplicate events left behind by a lost index.
func (c *CalendarClient) findEvent(ctx context.Context, pageID string) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(pageID); eventID != "" {
			event, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			switch {
			case err == nil && event.Status != "cancelled":
				return event, nil
			case err == nil || isNotFound(err):
				c.index.Remove(pageID)
			default:
				c.logger.Debug("indexed event lookup failed", "page", pageID, "event", eventID, "error", err)
			}
		}
	}

	events, err := c.EventsByPageID(ctx, pageID)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	for _, dup := range events[1:] {
		if err := c.DeleteEvent(ctx, dup.Id); err != nil {
			c.logger.Warn("could not delete duplicate event", "page", pageID, "event", dup.Id, "error", err)
			continue
		}
		c.logger.Debug("deleted duplicate event", "page", pageID, "event", dup.Id)
	}
	return events[0], nil
}

func (c *CalendarClient) remember(pageID, eventID string) {
	if c.index != nil {
		c.index.Set(pageID, eventID)
	}
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	event, err := c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not patch event %s: %w", eventID, err)
	}
	return event, nil
}

// DeleteEvent deletes an event from the calendar.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// EventsByPageID lists the events carrying pageID in their private extended
// properties.
func (c *CalendarClient) EventsByPageID(ctx context.Context, pageID string) ([]*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.PagePropertyKey, pageID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

// GetEventByPageID returns the first event mirroring pageID, or nil.
func (c *CalendarClient) GetEventByPageID(ctx context.Context, pageID string) (*calendar.Event, error) {
	events, err := c.EventsByPageID(ctx, pageID)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone)
}
