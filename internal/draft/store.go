// Package draft holds the wizard's in-flight session snapshots. These are a
// volatile cache between page loads; the record store is the authority once a
// step is submitted.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/clearview-college/enroll-portal/internal/wizard"
)

var ErrNotFound = errors.New("draft: session not found")

type Store interface {
	Get(ctx context.Context, sessionID string) (*wizard.Draft, error)
	Put(ctx context.Context, d *wizard.Draft) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is the single-process default. Entries carry the same TTL the
// Redis driver uses; expired sessions are dropped lazily on read and swept on
// write, so abandoned sessions do not accumulate for the life of the process.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]memoryEntry
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, drafts: map[string]memoryEntry{}}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*wizard.Draft, error) {
	m.mu.Lock()
	e, ok := m.drafts[sessionID]
	if ok && m.now().After(e.expires) {
		delete(m.drafts, sessionID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var d wizard.Draft
	if err := json.Unmarshal(e.raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *MemoryStore) Put(_ context.Context, d *wizard.Draft) error {
	// Stored as JSON so callers never share live map references.
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	now := m.now()
	for id, e := range m.drafts {
		if now.After(e.expires) {
			delete(m.drafts, id)
		}
	}
	m.drafts[d.SessionID] = memoryEntry{raw: raw, expires: now.Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.drafts, sessionID)
	m.mu.Unlock()
	return nil
}

// DefaultTTL bounds how long an abandoned session survives in Redis.
const DefaultTTL = 24 * time.Hour
