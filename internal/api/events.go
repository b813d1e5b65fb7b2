package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hiddengems-web/internal/models"
)

// FindEvents runs the backend's fuzzy location search, optionally narrowed
// to events running on a given day.
func (c *Client) FindEvents(ctx context.Context, q models.EventQuery) (*models.EventList, error) {
	const op = "find events"
	if strings.TrimSpace(q.Location) == "" {
		return nil, precondition(op, "location is required")
	}

	params := url.Values{"location": {q.Location}}
	if q.Date != "" {
		if _, err := time.Parse("2006-01-02", q.Date); err != nil {
			return nil, precondition(op, "Invalid date format. Use YYYY-MM-DD.")
		}
		params.Set("date", q.Date)
	}

	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, path: "/api/v1/events/find", query: params})
	if err != nil {
		return nil, err
	}
	return decodeEvents(op, resp)
}

func (c *Client) AllEvents(ctx context.Context) ([]models.Event, error) {
	const op = "all events"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, path: "/api/v1/events/"})
	if err != nil {
		return nil, err
	}
	list, err := decodeEvents(op, resp)
	if err != nil {
		return nil, err
	}
	return list.Results, nil
}

// decodeEvents accepts both {"results": [...], "count": n} and a bare array.
func decodeEvents(op string, resp *response) (*models.EventList, error) {
	body := bytes.TrimSpace(resp.body)
	if len(body) == 0 {
		return &models.EventList{Results: []models.Event{}}, nil
	}

	var list models.EventList
	var err error
	if body[0] == '[' {
		err = json.Unmarshal(body, &list.Results)
		list.Count = len(list.Results)
	} else {
		err = json.Unmarshal(body, &list)
	}
	if err != nil {
		return nil, &Error{
			Kind:   KindValidation,
			Op:     op,
			Status: resp.status,
			Body:   resp.body,
			Err:    fmt.Errorf("failed to decode events: %w", err),
		}
	}
	if list.Results == nil {
		list.Results = []models.Event{}
	}
	return &list, nil
}
