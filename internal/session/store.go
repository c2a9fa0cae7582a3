// Package session holds the shopper's identity and token pair, persisted across restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"noor-storefront/internal/domain"
	"noor-storefront/internal/notify"
)

// StorageKey is the key the session record is persisted under.
const StorageKey = "auth-storage"

const persistTimeout = 2 * time.Second

// State is a consistent snapshot of the session. Empty tokens are absent.
type State struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	Hydrated     bool
}

// Authenticated reports whether a user and access token are present.
func (s State) Authenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

type storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// record is the persisted shape: a flat JSON object, hydration flag excluded.
type record struct {
	User         *domain.User `json:"user"`
	AccessToken  *string      `json:"accessToken"`
	RefreshToken *string      `json:"refreshToken"`
}

// Store is the single session container of a process. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state State
	seq   uint64

	// persistMu orders writes so an older snapshot never overwrites a newer one.
	persistMu sync.Mutex
	savedSeq  uint64

	storage storage
	logger  *log.Logger
	hub     notify.Hub[State]

	hydrateOnce sync.Once
	readyOnce   sync.Once
	ready       chan struct{}
}

// New builds an empty, not yet hydrated store. storage may be nil to disable persistence.
func New(storage storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		storage: storage,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := s.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// Tokens returns the current access and refresh tokens.
func (s *Store) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken, s.state.RefreshToken
}

// Subscribe registers fn to receive a snapshot after every mutation.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// SetAuth replaces user and both tokens at once.
func (s *Store) SetAuth(user domain.User, accessToken, refreshToken string) {
	s.mutate(true, func(st *State) {
		u := user
		st.User = &u
		st.AccessToken = accessToken
		st.RefreshToken = refreshToken
	})
}

// SetAccessToken replaces only the access token. Without a user the call is
// ignored, so a refresh finishing after a logout cannot leave a token behind.
func (s *Store) SetAccessToken(token string) {
	s.mutate(true, func(st *State) {
		if st.User == nil {
			return
		}
		st.AccessToken = token
	})
}

// ClearAuth drops user and both tokens.
func (s *Store) ClearAuth() {
	s.mutate(true, func(st *State) {
		st.User = nil
		st.AccessToken = ""
		st.RefreshToken = ""
	})
}

// SetHydrated marks restoration from storage as complete. The first true value
// releases Ready.
func (s *Store) SetHydrated(hydrated bool) {
	s.mutate(false, func(st *State) {
		st.Hydrated = hydrated
	})
	if hydrated {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// Ready is closed once hydration has completed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until the store is hydrated or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hydrate restores the persisted record, if any, then marks the store hydrated.
// Only the first call does any work. A load error leaves the session empty but
// still hydrated; the error is returned so the caller can log it.
func (s *Store) Hydrate(ctx context.Context) error {
	var err error
	s.hydrateOnce.Do(func() {
		err = s.restore(ctx)
		s.SetHydrated(true)
	})
	return err
}

func (s *Store) restore(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	data, err := s.storage.Load(ctx, StorageKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("session: load %s: %w", StorageKey, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("session: decode %s: %w", StorageKey, err)
	}
	restored := State{User: rec.User}
	if rec.AccessToken != nil {
		restored.AccessToken = *rec.AccessToken
	}
	if rec.RefreshToken != nil {
		restored.RefreshToken = *rec.RefreshToken
	}
	if (restored.User == nil) != (restored.AccessToken == "") {
		s.logger.Printf("session: discarding inconsistent persisted record user_present=%t access_present=%t",
			restored.User != nil, restored.AccessToken != "")
		return nil
	}

	s.mutate(false, func(st *State) {
		st.User = restored.User
		st.AccessToken = restored.AccessToken
		st.RefreshToken = restored.RefreshToken
	})
	return nil
}

func (s *Store) mutate(persist bool, fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.seq++
	seq := s.seq
	snap := s.snapshotLocked()
	var data []byte
	if persist && s.storage != nil {
		data = encodeRecord(snap)
	}
	s.mu.Unlock()

	if data != nil {
		s.save(seq, data)
	}
	s.hub.Publish(seq, snap)
}

func (s *Store) save(seq uint64, data []byte) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if seq < s.savedSeq {
		return
	}
	s.savedSeq = seq

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.storage.Save(ctx, StorageKey, data); err != nil {
		s.logger.Printf("session: persist %s error=%v", StorageKey, err)
	}
}

func encodeRecord(st State) []byte {
	rec := record{User: st.User}
	if st.AccessToken != "" {
		rec.AccessToken = &st.AccessToken
	}
	if st.RefreshToken != "" {
		rec.RefreshToken = &st.RefreshToken
	}
	data, _ := json.Marshal(rec)
	return data
}
