package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process store with the same semantics as Redis:
// dedup by member, ascending pop by score, atomic claim on removal.
// It backs tests and the CLI's immediate-send path, where no durable
// store is involved.
type Memory struct {
	mu     sync.Mutex
	scores map[string]float64
}

func NewMemory() *Memory {
	return &Memory{scores: make(map[string]float64)}
}

func (s *Memory) Add(_ context.Context, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[member] = score
	return nil
}

func (s *Memory) PopDue(_ context.Context, maxScore float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]Entry, 0)
	for m, sc := range s.scores {
		if sc <= maxScore {
			due = append(due, Entry{Member: m, Score: sc})
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Score != due[j].Score {
			return due[i].Score < due[j].Score
		}
		return due[i].Member < due[j].Member
	})

	members := make([]string, 0, len(due))
	for _, e := range due {
		delete(s.scores, e.Member)
		members = append(members, e.Member)
	}
	return members, nil
}

func (s *Memory) Entries(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.scores))
	for m, sc := range s.scores {
		entries = append(entries, Entry{Member: m, Score: sc})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		return entries[i].Member < entries[j].Member
	})
	return entries, nil
}

func (s *Memory) Backlog(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.scores)), nil
}
