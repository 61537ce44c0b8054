package clip

import (
	"fmt"
	"sort"
	"sync"
)

// Library is a named collection of clips.
type Library struct {
	mu    sync.RWMutex
	clips map[string]*Clip
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{clips: make(map[string]*Clip)}
}

// LoadBuiltIn adds every embedded clip.
func (l *Library) LoadBuiltIn() error {
	names, err := ListEmbedded()
	if err != nil {
		return err
	}
	for _, name := range names {
		c, err := LoadEmbedded(name)
		if err != nil {
			return fmt.Errorf("failed to load clip %q: %w", name, err)
		}
		l.Register(c)
	}
	return nil
}

// LoadDir adds every clip in dir, replacing built-ins of the same name.
func (l *Library) LoadDir(dir string) error {
	clips, err := LoadFromDirectory(dir)
	if err != nil {
		return err
	}
	for _, c := range clips {
		l.Register(c)
	}
	return nil
}

// Register adds or replaces a clip.
func (l *Library) Register(c *Clip) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clips[c.Name] = c
}

// Get retrieves a clip by name.
func (l *Library) Get(name string) (*Clip, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.clips[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// Names returns all clip names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.clips))
	for name := range l.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
