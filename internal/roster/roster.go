// Package roster holds the set of student identifiers that may join a
// session.  The set can be replaced at runtime, e.g. when the roster
// file is edited during class.
package roster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Roster is a concurrent set of known identifiers.
type Roster struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// New returns a roster containing ids.  Blank entries are ignored.
func New(ids ...string) *Roster {
	r := &Roster{}
	r.Replace(ids)
	return r
}

// Contains reports whether id is on the roster.
func (r *Roster) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok
}

// Replace swaps the whole identifier set.
func (r *Roster) Replace(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	r.mu.Lock()
	r.ids = set
	r.mu.Unlock()
}

// List returns the identifiers in sorted order.
func (r *Roster) List() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the roster size.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Parse reads identifiers from r: one or more per line, separated by
// commas or whitespace.  Everything after '#' is a comment.
func Parse(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.FieldsFunc(line, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t'
		})
		ids = append(ids, fields...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// LoadFile parses the roster file at path.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	defer f.Close()

	ids, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return ids, nil
}
