package colors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const cacheFile = "class_colors.json"

// ClassState is the color assigned to one relation target (e.g. a course).
type ClassState struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache hands out distinct calendar colors to relation targets, recycling
// the least recently used color once all eleven are taken.
type ColorCache struct {
	Path    string
	Classes map[string]*ClassState `json:"classes"`
	dirty   bool
	now     func() time.Time
}

// NewColorCache loads the cache from dir, starting empty if it does not exist.
func NewColorCache(dir string) (*ColorCache, error) {
	c := &ColorCache{
		Path:    filepath.Join(dir, cacheFile),
		Classes: make(map[string]*ClassState),
		now:     time.Now,
	}
	if _, err := os.Stat(c.Path); err == nil {
		if err := c.Load(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&c.Classes); err != nil {
		return fmt.Errorf("failed to decode color cache: %w", err)
	}
	if c.Classes == nil {
		c.Classes = make(map[string]*ClassState)
	}
	return nil
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return fmt.Errorf("failed to create color cache directory: %w", err)
	}
	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("failed to create color cache file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(c.Classes); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// ColorID returns the color of a relation target, assigning one if needed.
func (c *ColorCache) ColorID(classID string) string {
	if classID == "" {
		return ""
	}
	if state, ok := c.Classes[classID]; ok {
		state.LastUsed = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assign(classID)
}

func (c *ColorCache) assign(classID string) string {
	used := make(map[string]bool, len(c.Classes))
	for _, s := range c.Classes {
		used[s.ColorID] = true
	}

	color := ""
	for i := 1; i <= 11; i++ {
		if id := strconv.Itoa(i); !used[id] {
			color = id
			break
		}
	}

	if color == "" {
		// Every color is taken: evict the least recently used class.
		var oldest string
		for id, s := range c.Classes {
			if oldest == "" || s.LastUsed.Before(c.Classes[oldest].LastUsed) {
				oldest = id
			}
		}
		color = c.Classes[oldest].ColorID
		delete(c.Classes, oldest)
	}

	c.Classes[classID] = &ClassState{ColorID: color, LastUsed: c.now()}
	c.dirty = true
	return color
}
