package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const indexFile = "events.json"

// EventIndex remembers which calendar event mirrors which Notion page.
type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// NewEventIndex loads the index kept in dir, starting empty if there is none.
func NewEventIndex(dir string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     filepath.Join(dir, indexFile),
	}
	if _, err := os.Stat(idx.Path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *EventIndex) Load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&idx.Mappings); err != nil {
		return fmt.Errorf("failed to decode event index %s: %w", idx.Path, err)
	}
	if idx.Mappings == nil {
		idx.Mappings = make(map[string]string)
	}
	return nil
}

// Save writes the index if anything changed since the last save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(idx.Path), 0700); err != nil {
		return err
	}
	f, err := os.Create(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(pageID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[pageID]
}

func (idx *EventIndex) Set(pageID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[pageID] != eventID {
		idx.Mappings[pageID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(pageID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.Mappings[pageID]; ok {
		delete(idx.Mappings, pageID)
		idx.dirty = true
	}
}
