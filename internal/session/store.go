package session

import (
	"sync"

	"github.com/decoylab/lure/internal/intel"
)

// Snapshot is a point-in-time copy of a session's state. The intelligence
// record is deep-copied so callers can never mutate store-owned sets.
type Snapshot struct {
	SessionID    string
	TurnCount    int
	Intelligence *intel.Record
	Reported     bool
}

// session is the live state for one conversation thread. Its mutex serializes
// turn recording and the reported flip for that session only, so operations
// on different sessions never contend.
type session struct {
	mu        sync.Mutex
	turnCount int
	record    *intel.Record
	reported  bool
}

// Store owns all per-session state. It is the single authority on whether a
// session has been reported; sessions are never physically deleted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

func (s *Store) get(sessionID string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[sessionID]; ok {
		return sess
	}
	sess = &session{record: intel.NewRecord()}
	s.sessions[sessionID] = sess
	return sess
}

// GetOrCreate returns a snapshot of the session, creating it with zero turns,
// an empty record and reported=false on first sight.
func (s *Store) GetOrCreate(sessionID string) Snapshot {
	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshotLocked(sessionID, sess)
}

// Lookup returns a snapshot without creating the session.
func (s *Store) Lookup(sessionID string) (Snapshot, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshotLocked(sessionID, sess), true
}

// RecordTurn merges newRecord into the session's accumulated record (set
// union per category, sticky scam flag) and increments the turn count.
// Accumulated sets only ever grow.
func (s *Store) RecordTurn(sessionID string, newRecord *intel.Record) Snapshot {
	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.record.Merge(newRecord)
	sess.turnCount++
	return snapshotLocked(sessionID, sess)
}

// TryMarkReported atomically flips reported false→true and returns true iff
// this call performed the flip. Exactly one caller wins per session; the flag
// never goes back to false. This is the linearization point that keeps
// concurrent gate triggers from dispatching duplicate reports.
func (s *Store) TryMarkReported(sessionID string) bool {
	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.reported {
		return false
	}
	sess.reported = true
	return true
}

func snapshotLocked(sessionID string, sess *session) Snapshot {
	return Snapshot{
		SessionID:    sessionID,
		TurnCount:    sess.turnCount,
		Intelligence: sess.record.Clone(),
		Reported:     sess.reported,
	}
}
