// Package calendar creates events on a single configured calendar and
// remembers scheduling requests by idempotency key.
package calendar

import (
	"context"
	"time"
)

// EventDuration is the fixed length of every scheduled call.
const EventDuration = 30 * time.Minute

// Event is a request to create a calendar entry.
type Event struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// CreatedEvent is the calendar's reference to a new entry.
type CreatedEvent struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// Creator inserts events into a calendar.
type Creator interface {
	CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error)
}
