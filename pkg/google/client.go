package google

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/notask/pkg/auth"
	"github.com/harrisonrobin/notask/pkg/index"
)

// NewClient authorizes through flow and opens the calendar named calendarName.
func NewClient(ctx context.Context, flow *auth.Flow, calendarName string, idx *index.EventIndex, logger *slog.Logger) (*CalendarClient, error) {
	client, err := flow.Client(ctx, auth.CalendarScopes)
	if err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	return Open(ctx, srv, calendarName, idx, logger)
}

// Open looks calendarName up in the user's calendar list.
func Open(ctx context.Context, srv *calendar.Service, calendarName string, idx *index.EventIndex, logger *slog.Logger) (*CalendarClient, error) {
	var calendarID string
	err := srv.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			if calendarID == "" && item.Summary == calendarName {
				calendarID = item.Id
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	if calendarID == "" {
		return nil, fmt.Errorf("calendar '%s' not found", calendarName)
	}
	logger.Debug("opened calendar", "name", calendarName, "id", calendarID)

	return NewCalendarClient(srv, calendarID, idx, logger), nil
}
