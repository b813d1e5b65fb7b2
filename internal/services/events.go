package services

import (
	"context"
	"strings"
	"time"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

// DashboardEventPreview is how many upcoming events the dashboard shows.
const DashboardEventPreview = 5

// EventFilter narrows an already fetched event list. From and To are
// inclusive YYYY-MM-DD bounds; zero values disable them.
type EventFilter struct {
	From  time.Time
	To    time.Time
	Venue string
}

var eventDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
}

// ParseEventDate reads the date formats seen in event records and returns
// the calendar day.
func ParseEventDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// FilterEvents keeps events that start on or after From and end (or, with
// no end date, start) on or before To. Events whose dates cannot be read
// are dropped as soon as a bound is set.
func FilterEvents(events []models.Event, f EventFilter) []models.Event {
	venue := strings.ToLower(strings.TrimSpace(f.Venue))
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if venue != "" && !strings.Contains(strings.ToLower(e.Venue), venue) {
			continue
		}

		if !f.From.IsZero() {
			start, ok := ParseEventDate(e.StartDate)
			if !ok || start.Before(f.From) {
				continue
			}
		}

		if !f.To.IsZero() {
			end, ok := ParseEventDate(e.EndDate)
			if !ok {
				end, ok = ParseEventDate(e.StartDate)
			}
			if !ok || end.After(f.To) {
				continue
			}
		}

		out = append(out, e)
	}
	return out
}

// EventSearch is the Home page event query. Location and Date go to the
// backend; the range filter runs over what comes back.
type EventSearch struct {
	Location string
	Date     string
	Filter   EventFilter
}

// SearchEvents uses the backend's location search when a location is given
// and the full list otherwise.
func SearchEvents(ctx context.Context, c *api.Client, q EventSearch) ([]models.Event, error) {
	var events []models.Event
	if strings.TrimSpace(q.Location) != "" {
		list, err := c.FindEvents(ctx, models.EventQuery{Location: q.Location, Date: q.Date})
		if err != nil {
			return nil, err
		}
		events = list.Results
	} else {
		all, err := c.AllEvents(ctx)
		if err != nil {
			return nil, err
		}
		events = all
	}
	return FilterEvents(events, q.Filter), nil
}
