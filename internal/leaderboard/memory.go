package leaderboard

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Source for local development and tests. It
// applies the same best-per-user aggregation as the SQL repository.
type MemoryStore struct {
	mu     sync.Mutex
	scores []Entry
}

// NewMemoryStore creates an empty in-memory score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// RecordScore appends one score row.
func (m *MemoryStore) RecordScore(_ context.Context, username string, wpm int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, Entry{Username: username, WPM: wpm})
	return nil
}

// GetTop returns up to n users by their best recorded WPM, descending.
func (m *MemoryStore) GetTop(_ context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	best := make(map[string]int)
	for _, s := range m.scores {
		if s.WPM > best[s.Username] {
			best[s.Username] = s.WPM
		}
	}
	m.mu.Unlock()

	entries := make([]Entry, 0, len(best))
	for username, wpm := range best {
		entries = append(entries, Entry{Username: username, WPM: wpm})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].WPM != entries[j].WPM {
			return entries[i].WPM > entries[j].WPM
		}
		return entries[i].Username < entries[j].Username
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}
