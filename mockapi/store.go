package mockapi

import (
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/logs"
)

type logStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]logs.Log
}

func newLogStore() *logStore {
	return &logStore{entries: make(map[int64]logs.Log)}
}

// Create assigns the next ID. A zero timestamp becomes the current time.
func (s *logStore) Create(l logs.Log) logs.Log {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	l.ID = s.nextID
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	s.entries[l.ID] = l
	return l
}

func (s *logStore) Get(id int64) (logs.Log, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.entries[id]
	return l, ok
}

func (s *logStore) Replace(l logs.Log) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[l.ID]; !ok {
		return false
	}
	s.entries[l.ID] = l
	return true
}

func (s *logStore) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// Query returns the entries matching f in the filter's order.
func (s *logStore) Query(f logs.Filter) []logs.Log {
	s.mu.RLock()
	out := make([]logs.Log, 0, len(s.entries))
	for _, l := range s.entries {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	s.mu.RUnlock()

	logs.Sort(out, f.Ordering)
	return out
}

func (s *logStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type preferenceStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]logs.FilterPreference
}

func newPreferenceStore() *preferenceStore {
	return &preferenceStore{items: make(map[int64]logs.FilterPreference)}
}

// List returns the user's presets, newest first.
func (s *preferenceStore) List(userID int64) []logs.FilterPreference {
	s.mu.RLock()
	out := make([]logs.FilterPreference, 0)
	for _, p := range s.items {
		if p.User == userID {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *preferenceStore) Get(userID, id int64) (logs.FilterPreference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok || p.User != userID {
		return logs.FilterPreference{}, false
	}
	return p, true
}

// Create stores p for p.User. Names are unique per user.
func (s *preferenceStore) Create(p logs.FilterPreference) (logs.FilterPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(p.User, p.Name, 0) {
		return logs.FilterPreference{}, errors.ErrConflict
	}
	s.nextID++
	now := time.Now().UTC()
	p.ID = s.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	s.items[p.ID] = p
	return p, nil
}

func (s *preferenceStore) Update(p logs.FilterPreference) (logs.FilterPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[p.ID]
	if !ok || existing.User != p.User {
		return logs.FilterPreference{}, errors.ErrNotFound
	}
	if s.nameTaken(p.User, p.Name, p.ID) {
		return logs.FilterPreference{}, errors.ErrConflict
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.items[p.ID] = p
	return p, nil
}

func (s *preferenceStore) Delete(userID, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok || p.User != userID {
		return false
	}
	delete(s.items, id)
	return true
}

func (s *preferenceStore) nameTaken(userID int64, name string, exceptID int64) bool {
	for _, p := range s.items {
		if p.User == userID && p.Name == name && p.ID != exceptID {
			return true
		}
	}
	return false
}
