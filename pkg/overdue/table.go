package overdue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const tableFile = "mirrored_tasks.json"

// Entry is a mirrored task still waiting for its due time.
type Entry struct {
	EventID string    `json:"event_id"`
	Summary string    `json:"summary"`
	Due     time.Time `json:"due"`
}

// Table tracks mirrored tasks so their events can be flagged once the due
// time passes. Overdue tasks drop out of the Notion query, so nothing else
// would touch those events again.
type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	dirty   bool
}

// NewTable loads the table kept in dir, starting empty if there is none.
func NewTable(dir string) (*Table, error) {
	t := &Table{
		Path:    filepath.Join(dir, tableFile),
		Entries: make(map[string]Entry),
	}
	if _, err := os.Stat(t.Path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return fmt.Errorf("failed to decode %s: %w", t.Path, err)
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return err
	}
	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Update records or refreshes a mirrored task. A zero due time removes it.
func (t *Table) Update(pageID, eventID, summary string, due time.Time) {
	if due.IsZero() {
		t.Remove(pageID)
		return
	}
	old, ok := t.Entries[pageID]
	if ok && old.Due.Equal(due) && old.EventID == eventID && old.Summary == summary {
		return
	}
	t.Entries[pageID] = Entry{EventID: eventID, Summary: summary, Due: due}
	t.dirty = true
}

func (t *Table) Remove(pageID string) {
	if _, ok := t.Entries[pageID]; ok {
		delete(t.Entries, pageID)
		t.dirty = true
	}
}

// Sweep removes and returns the entries due before now.
func (t *Table) Sweep(now time.Time) []Entry {
	var swept []Entry
	for id, e := range t.Entries {
		if e.Due.Before(now) {
			swept = append(swept, e)
			delete(t.Entries, id)
			t.dirty = true
		}
	}
	return swept
}
