package session

import (
	"sync"

	"github.com/leszmonitor/dashboard/internal/domain"
)

// Snapshot is a consistent view of the session state delivered to
// subscribers.
type Snapshot struct {
	Username string
	User     *domain.User
	Team     *domain.Team
}

// Store holds the process-wide session state: the logged-in username, its
// resolved user record, and the team backing the current workspace. Each slot
// is independently settable and nullable. Every write notifies all
// subscribers before the write call returns; there is no ordering guarantee
// between subscribers.
//
// The store is constructed once at startup and lives for the process.
type Store struct {
	mu       sync.Mutex
	username string
	user     *domain.User
	team     *domain.Team

	nextID int
	subs   map[int]func(Snapshot)
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(Snapshot))}
}

// Subscribe registers a callback invoked on every state change. The returned
// function removes the subscription; the callback is never invoked after it
// returns.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetUsername publishes the identity decoded from the session token. It does
// not populate the user record; a dependent fetch must do that.
func (s *Store) SetUsername(username string) {
	s.mu.Lock()
	s.username = username
	s.notifyLocked()
}

// SetUser publishes the fetched user record for the current username.
func (s *Store) SetUser(user *domain.User) {
	s.mu.Lock()
	s.user = user
	s.notifyLocked()
}

// SetTeam overwrites the current workspace team wholesale. Passing nil clears
// it.
func (s *Store) SetTeam(team *domain.Team) {
	s.mu.Lock()
	s.team = team
	s.notifyLocked()
}

// ClearIdentity resets username and user on logout. The team slot is left to
// the workspace loader, which overwrites it on the next team-scoped
// navigation.
func (s *Store) ClearIdentity() {
	s.mu.Lock()
	s.username = ""
	s.user = nil
	s.notifyLocked()
}

func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Store) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Store) Team() *domain.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.team
}

// notifyLocked snapshots state and subscribers under the lock, then delivers
// outside it so callbacks may read the store. Callers hold s.mu.
func (s *Store) notifyLocked() {
	snap := Snapshot{Username: s.username, User: s.user, Team: s.team}
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
