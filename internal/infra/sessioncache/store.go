package sessioncache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"calendar_quiz_funnel/internal/domain/funnel"
)

// Snapshot is the last-known durable view of a session: enough to resume at
// the confirmation screen after an external payment redirect without
// re-running scoring. The server-side counterpart of the browser-local
// key-value store the funnel used to rely on.
type Snapshot struct {
	Email              string
	CalendarTemplateID string
	Paid               bool
}

// Store keeps live sessions and their snapshots in two bounded LRU caches.
// Eviction loses only transient progress; paid state lives in the user store.
type Store struct {
	sessions  *lru.Cache[string, *funnel.Session]
	snapshots *lru.Cache[string, Snapshot]
}

func NewStore(size int) (*Store, error) {
	sessions, err := lru.New[string, *funnel.Session](size)
	if err != nil {
		return nil, err
	}
	snapshots, err := lru.New[string, Snapshot](size)
	if err != nil {
		return nil, err
	}
	return &Store{sessions: sessions, snapshots: snapshots}, nil
}

func (s *Store) SaveSession(sess *funnel.Session) {
	s.sessions.Add(sess.ID, sess)
}

func (s *Store) GetSession(id string) (*funnel.Session, bool) {
	return s.sessions.Get(id)
}

func (s *Store) SaveSnapshot(sessionID string, snap Snapshot) {
	s.snapshots.Add(sessionID, snap)
}

func (s *Store) GetSnapshot(sessionID string) (Snapshot, bool) {
	return s.snapshots.Get(sessionID)
}

// Reset removes a session and its snapshot. Snapshots are only ever cleared
// through an explicit reset.
func (s *Store) Reset(sessionID string) {
	s.sessions.Remove(sessionID)
	s.snapshots.Remove(sessionID)
}
