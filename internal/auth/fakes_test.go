package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opentodo/backend/internal/password"
	"github.com/opentodo/backend/internal/refresh"
	"github.com/opentodo/backend/internal/user"
)

// In-memory store doubles for service and handler tests. They mirror the
// Postgres and Redis implementations closely enough to exercise the
// orchestrator's contract, including atomic consume and ownership checks.

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*user.User
	byID    map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*user.User),
		byID:    make(map[uuid.UUID]*user.User),
	}
}

func (r *fakeUserRepo) Save(_ context.Context, email, passwordHash string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, user.ErrExists
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.byEmail[email] = u
	r.byID[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.byID, id)
	}
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[uuid.UUID]*refresh.Token
}

func newFakeRefreshRepo(ttl time.Duration) *fakeRefreshRepo {
	return &fakeRefreshRepo{ttl: ttl, tokens: make(map[uuid.UUID]*refresh.Token)}
}

func (r *fakeRefreshRepo) Issue(_ context.Context, userID uuid.UUID) (*refresh.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := &refresh.Token{
		Token:     uuid.New(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(r.ttl),
		CreatedAt: time.Now(),
	}
	r.tokens[t.Token] = t
	return t, nil
}

func (r *fakeRefreshRepo) Consume(_ context.Context, token uuid.UUID) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return uuid.Nil, refresh.ErrNotFound
	}
	delete(r.tokens, token)

	if time.Now().After(t.ExpiresAt) {
		return uuid.Nil, refresh.ErrExpired
	}
	return t.UserID, nil
}

func (r *fakeRefreshRepo) Delete(_ context.Context, token, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok || t.UserID != userID {
		return refresh.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *fakeRefreshRepo) has(token uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tokens[token]
	return ok
}

type fakeRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{entries: make(map[string]time.Time)}
}

func (s *fakeRevocationStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Until(expiresAt) <= 0 {
		return nil
	}
	s.entries[token] = expiresAt
	return nil
}

func (s *fakeRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.entries[token]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(s.entries, token)
		return false, nil
	}
	return true, nil
}

// recordingHasher wraps the real bcrypt hasher and counts verification
// calls, so tests can assert the dummy comparison runs on the
// unknown-email path.
type recordingHasher struct {
	*password.Hasher

	mu         sync.Mutex
	verifies   int
	dummyCalls int
}

func newRecordingHasher(inner *password.Hasher) *recordingHasher {
	return &recordingHasher{Hasher: inner}
}

func (h *recordingHasher) Verify(pass, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.Hasher.Verify(pass, hash)
}

func (h *recordingHasher) VerifyDummy(pass string) bool {
	h.mu.Lock()
	h.dummyCalls++
	h.mu.Unlock()
	return h.Hasher.VerifyDummy(pass)
}
