package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultColor is used when Notion leaves an option's color out.
const DefaultColor = "default"

// SelectOption is a normalized single-choice value built from a Status or a
// MultiSelect option.
type SelectOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// FileRef points at an external or Notion-hosted file.
type FileRef struct {
	URL        string  `json:"url"`
	ExpiryTime *string `json:"expiry_time,omitempty"`
}

// Icon is the icon attached to a Notion page or database.
type Icon struct {
	Type     string   `json:"type"`
	Emoji    string   `json:"emoji,omitempty"`
	External *FileRef `json:"external,omitempty"`
	File     *FileRef `json:"file,omitempty"`
}

// RelationLink is a reference to another row, carrying what a client needs to
// render a link. ID always comes from the relation property itself.
type RelationLink struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
	Icon *Icon   `json:"icon"`
}

// DateValue is a Notion date payload, kept exactly as the API returned it.
type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end"`
	TimeZone *string `json:"time_zone"`
}

const dateOnlyLayout = "2006-01-02"

// StartTime parses Start. allDay is true when Start carries no time of day.
func (d DateValue) StartTime() (t time.Time, allDay bool, err error) {
	if t, err = time.Parse(time.RFC3339, d.Start); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse(dateOnlyLayout, d.Start); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date %q", d.Start)
}

// Task is the typed projection of one Notion row.
type Task struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	DueDate    DateValue      `json:"due_date"`
	Status     SelectOption   `json:"status"`
	Class      []RelationLink `json:"class"`
	Type       []SelectOption `json:"type"`
	ExtraProps map[string]any `json:"extra_props"`
}

// MarshalJSON keeps the client contract stable: empty sequences encode as []
// and extra_props always encodes as an object.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	out := plain(t)
	if out.Class == nil {
		out.Class = []RelationLink{}
	}
	if out.Type == nil {
		out.Type = []SelectOption{}
	}
	if out.ExtraProps == nil {
		out.ExtraProps = map[string]any{}
	}
	return json.Marshal(out)
}
