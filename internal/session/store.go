/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package session

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
)

// Session holds the Jira credentials and identity established at login. It is
// read-only for its lifetime; logout or expiry destroys it.
type Session struct {
    ID          string
    BaseURL     string
    Host        string
    Email       string
    APIToken    string
    AccountID   string
    DisplayName string
    CreatedAt   time.Time
    ExpiresAt   time.Time
}

func (s *Session) Expired(now time.Time) bool {
    return !s.ExpiresAt.After(now)
}

// Store maps opaque session ids to credential records. The memory backend
// serves single-instance deployments; the Postgres backend serves
// multi-instance ones.
type Store interface {
    // Get returns nil without error when the id is unknown or expired.
    Get(ctx context.Context, id string) (*Session, error)
    Save(ctx context.Context, s *Session) error
    Delete(ctx context.Context, id string) error
    // Prune removes sessions expired as of now and reports how many went.
    Prune(ctx context.Context, now time.Time) (int, error)
}

// New builds an unsaved session with a fresh id and the given TTL.
func New(ttl time.Duration) *Session {
    now := time.Now()
    return &Session{
        ID:        uuid.NewString(),
        CreatedAt: now,
        ExpiresAt: now.Add(ttl),
    }
}

type MemoryStore struct {
    mu       sync.RWMutex
    sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
    return &MemoryStore{sessions: map[string]*Session{}}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
    m.mu.RLock()
    s := m.sessions[id]
    m.mu.RUnlock()
    if s == nil || s.Expired(time.Now()) { return nil, nil }
    cp := *s
    return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
    cp := *s
    m.mu.Lock()
    m.sessions[s.ID] = &cp
    m.mu.Unlock()
    return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
    m.mu.Lock()
    delete(m.sessions, id)
    m.mu.Unlock()
    return nil
}

func (m *MemoryStore) Prune(_ context.Context, now time.Time) (int, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    n := 0
    for id, s := range m.sessions {
        if s.Expired(now) {
            delete(m.sessions, id)
            n++
        }
    }
    return n, nil
}
