package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCreator creates events through the Google Calendar v3 API.
type GoogleCreator struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleCreator builds a client for calendarID. Pass option.WithTokenSource
// for stored OAuth credentials or option.WithCredentialsFile for a service
// account.
func NewGoogleCreator(ctx context.Context, calendarID string, opts ...option.ClientOption) (*GoogleCreator, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCreator{svc: svc, calendarID: calendarID}, nil
}

// CreateEvent implements Creator.
func (g *GoogleCreator) CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error) {
	body := &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{"convolens_request_id": uuid.NewString()},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, body).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &CreatedEvent{ID: created.Id, Link: created.HtmlLink}, nil
}
