package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zihangg/kuberan-bot/internal/logger"
)

// ErrNotFound is returned when no live session exists for a key and
// family: never started, explicitly ended, or evicted after idling.
var ErrNotFound = errors.New("session: not found")

type entryKey struct {
	Key
	family Family
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// Store owns all live sessions. Events for the same (chat, user, family)
// are serialized through a per-entry lock; unrelated sessions proceed
// concurrently.
type Store struct {
	mu      sync.Mutex
	entries map[entryKey]*entry

	txnTTL  time.Duration
	linkTTL time.Duration

	log      *slog.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// StoreOptions configures a Store.
type StoreOptions struct {
	TransactionTimeout time.Duration
	LinkTimeout        time.Duration
	// SweepInterval controls the eviction pass; 0 disables the janitor
	// (expiry is still enforced lazily on access).
	SweepInterval time.Duration
}

// NewStore creates a Store and starts its eviction janitor if a sweep
// interval is configured.
func NewStore(opts StoreOptions) *Store {
	if opts.TransactionTimeout <= 0 {
		opts.TransactionTimeout = 300 * time.Second
	}
	if opts.LinkTimeout <= 0 {
		opts.LinkTimeout = 120 * time.Second
	}
	s := &Store{
		entries: make(map[entryKey]*entry),
		txnTTL:  opts.TransactionTimeout,
		linkTTL: opts.LinkTimeout,
		log:     logger.Component("session"),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		go s.janitor(opts.SweepInterval)
	}
	return s
}

// Close stops the janitor. Live sessions are abandoned.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) ttl(f Family) time.Duration {
	if f == FamilyLink {
		return s.linkTTL
	}
	return s.txnTTL
}

// Begin installs a new session, replacing any live session of the same
// family for the key. A live session of the other family is untouched.
func (s *Store) Begin(sess *Session) {
	ek := entryKey{Key: sess.Key, family: sess.Flow.Family()}
	sess.LastActive = s.now()

	for {
		s.mu.Lock()
		e, ok := s.entries[ek]
		if !ok {
			e = &entry{}
			s.entries[ek] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		// A handler that ended the old session may have removed the
		// entry from the map while we waited for its lock; publishing
		// into the orphan would lose the new session.
		s.mu.Lock()
		current := s.entries[ek] == e
		s.mu.Unlock()
		if !current {
			e.mu.Unlock()
			continue
		}
		e.sess = sess
		e.mu.Unlock()
		return
	}
}

// Do runs fn with the live session for the key and family under the
// per-entry lock. Returns ErrNotFound when no live session exists or it
// has idled past its timeout (the expired session is evicted silently).
// When fn marks the session ended, it is removed after fn returns.
func (s *Store) Do(key Key, family Family, fn func(*Session) error) error {
	ek := entryKey{Key: key, family: family}

	s.mu.Lock()
	e, ok := s.entries[ek]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.sess
	if sess == nil {
		return ErrNotFound
	}
	if s.now().Sub(sess.LastActive) > s.ttl(family) {
		e.sess = nil
		s.remove(ek, e)
		s.log.Debug("session expired", slog.Int64("chat_id", key.ChatID), slog.Int64("user_id", key.UserID))
		return ErrNotFound
	}

	sess.LastActive = s.now()
	err := fn(sess)

	if sess.Ended() {
		e.sess = nil
		s.remove(ek, e)
	}
	return err
}

// End removes the live session for the key and family, if any. It is
// idempotent.
func (s *Store) End(key Key, family Family) {
	ek := entryKey{Key: key, family: family}

	s.mu.Lock()
	e, ok := s.entries[ek]
	s.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.sess = nil
	e.mu.Unlock()
	s.remove(ek, e)
}

// remove deletes the entry from the map if it still holds no session.
func (s *Store) remove(ek entryKey, e *entry) {
	s.mu.Lock()
	if cur, ok := s.entries[ek]; ok && cur == e && cur.sess == nil {
		delete(s.entries, ek)
	}
	s.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep silently evicts idle sessions. Entries busy in a handler are
// skipped; the next sweep or the lazy check in Do will catch them.
func (s *Store) sweep() {
	s.mu.Lock()
	snapshot := make(map[entryKey]*entry, len(s.entries))
	for k, e := range s.entries {
		snapshot[k] = e
	}
	s.mu.Unlock()

	now := s.now()
	for ek, e := range snapshot {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess != nil && now.Sub(e.sess.LastActive) > s.ttl(ek.family) {
			e.sess = nil
			s.remove(ek, e)
			s.log.Debug("session evicted",
				slog.Int64("chat_id", ek.ChatID),
				slog.Int64("user_id", ek.UserID),
			)
		}
		e.mu.Unlock()
	}
}
