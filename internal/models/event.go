package models

import "encoding/json"

// Event is a craft-fair record. The backend stores events under their
// display column names, so the well-known ones are lifted into fields and
// everything else is kept in Extra.
type Event struct {
	ID        string                     `json:"_id,omitempty"`
	Title     string                     `json:"Event Title,omitempty"`
	Venue     string                     `json:"Venue of Event,omitempty"`
	StartDate string                     `json:"Event Start Date,omitempty"`
	EndDate   string                     `json:"Event End Date,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

var eventKnownKeys = map[string]bool{
	"_id":              true,
	"id":               true,
	"Event Title":      true,
	"Venue of Event":   true,
	"Event Start Date": true,
	"Event End Date":   true,
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		var s string
		if v, ok := raw[key]; ok {
			json.Unmarshal(v, &s)
		}
		return s
	}

	e.ID = str("_id")
	if e.ID == "" {
		e.ID = str("id")
	}
	e.Title = str("Event Title")
	e.Venue = str("Venue of Event")
	e.StartDate = str("Event Start Date")
	e.EndDate = str("Event End Date")

	e.Extra = nil
	for k, v := range raw {
		if eventKnownKeys[k] {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]json.RawMessage)
		}
		e.Extra[k] = v
	}
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+5)
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.ID != "" {
		out["_id"] = e.ID
	}
	if e.Title != "" {
		out["Event Title"] = e.Title
	}
	if e.Venue != "" {
		out["Venue of Event"] = e.Venue
	}
	if e.StartDate != "" {
		out["Event Start Date"] = e.StartDate
	}
	if e.EndDate != "" {
		out["Event End Date"] = e.EndDate
	}
	return json.Marshal(out)
}

type EventQuery struct {
	Location string
	Date     string // YYYY-MM-DD
}

type EventList struct {
	Results []Event `json:"results"`
	Count   int     `json:"count"`
}
