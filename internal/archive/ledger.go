package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Ledger remembers images the archive could not deliver, or delivered with
// no usable pixel, so later runs do not request them again.
type Ledger struct {
	path string

	mu      sync.Mutex
	invalid map[string]struct{}
}

func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, invalid: map[string]struct{}{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	for _, n := range names {
		l.invalid[n] = struct{}{}
	}
	return l, nil
}

func (l *Ledger) Contains(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.invalid[name]
	return ok
}

// Add records name and rewrites the ledger file.
func (l *Ledger) Add(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.invalid[name]; ok {
		return nil
	}
	l.invalid[name] = struct{}{}

	names := make([]string, 0, len(l.invalid))
	for n := range l.invalid {
		names = append(names, n)
	}
	sort.Strings(names)
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.invalid)
}
