package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/route-command-engine/internal/route"
)

var (
	// ErrNotFound is returned when no snapshot is available for a session.
	ErrNotFound = errors.New("no route snapshot for session")
	// ErrStaleRevision is returned when a snapshot is not newer than the session's latest one.
	ErrStaleRevision = errors.New("route snapshot revision is not newer than the stored one")
)

// sessionHistory holds the snapshots of one route session, oldest revision first.
type sessionHistory struct {
	snapshots []route.Snapshot
}

func (h *sessionHistory) latest() (route.Snapshot, bool) {
	if len(h.snapshots) == 0 {
		return route.Snapshot{}, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

func (h *sessionHistory) find(revision uint64) (route.Snapshot, bool) {
	i := sort.Search(len(h.snapshots), func(i int) bool {
		return h.snapshots[i].Revision >= revision
	})
	if i == len(h.snapshots) || h.snapshots[i].Revision != revision {
		return route.Snapshot{}, false
	}
	return h.snapshots[i], true
}

// prune drops snapshots beyond maxRevisions and those older than cutoff. The
// newest revision always survives so a session keeps its last known route.
func (h *sessionHistory) prune(maxRevisions int, cutoff time.Time) {
	if maxRevisions > 0 && len(h.snapshots) > maxRevisions {
		h.snapshots = h.snapshots[len(h.snapshots)-maxRevisions:]
	}
	if cutoff.IsZero() {
		return
	}
	last := len(h.snapshots) - 1
	i := 0
	for i < last && h.snapshots[i].Timestamp.Before(cutoff) {
		i++
	}
	h.snapshots = h.snapshots[i:]
}

// MemoryStore keeps route session snapshots in memory, one revision-ordered
// history per session.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session ID
	sessions map[string]*sessionHistory

	maxRevisions int           // per session, <= 0 is unlimited
	maxAge       time.Duration // <= 0 is unlimited
	now          func() time.Time
}

// NewMemoryStore creates a store that keeps at most maxRevisions snapshots per
// session, none older than maxAge.
func NewMemoryStore(maxRevisions int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:     make(map[string]*sessionHistory),
		maxRevisions: maxRevisions,
		maxAge:       maxAge,
		now:          time.Now,
	}
}

// SaveSnapshot records a snapshot under its session key. Revisions must increase
// per session; an equal or older revision returns ErrStaleRevision.
func (s *MemoryStore) SaveSnapshot(snapshot route.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.sessions[snapshot.Key]
	if !ok {
		h = &sessionHistory{}
		s.sessions[snapshot.Key] = h
	}
	if latest, ok := h.latest(); ok && snapshot.Revision <= latest.Revision {
		return ErrStaleRevision
	}

	h.snapshots = append(h.snapshots, snapshot)

	var cutoff time.Time
	if s.maxAge > 0 {
		cutoff = s.now().Add(-s.maxAge)
	}
	h.prune(s.maxRevisions, cutoff)
	return nil
}

// GetLatest returns the newest snapshot of a session.
func (s *MemoryStore) GetLatest(key string) (route.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h, ok := s.sessions[key]; ok {
		if snap, ok := h.latest(); ok {
			return snap, nil
		}
	}
	return route.Snapshot{}, ErrNotFound
}

// GetRevision returns the snapshot a session stored for revision.
func (s *MemoryStore) GetRevision(key string, revision uint64) (route.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h, ok := s.sessions[key]; ok {
		if snap, ok := h.find(revision); ok {
			return snap, nil
		}
	}
	return route.Snapshot{}, ErrNotFound
}

// GetRange returns the snapshots of a session taken between from and to (inclusive).
func (s *MemoryStore) GetRange(key string, from, to time.Time) ([]route.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}

	var result []route.Snapshot
	for _, snap := range h.snapshots {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Delete drops the history of a session.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}
