// Package session carries the authenticated cashier through request contexts.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// UnknownWorker is the display name used when a cashier has none
const UnknownWorker = "Unknown Worker"

// Identity is the cashier operating a terminal
type Identity struct {
	CashierID   string `json:"cashierId"`
	CashierName string `json:"cashierName"`
}

// DisplayName is the cashier name, or UnknownWorker
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.CashierName); name != "" {
		return name
	}
	return UnknownWorker
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || id.CashierID == "" {
		return Identity{}, false
	}
	return id, true
}

// Session is an active cashier session
type Session struct {
	Identity
	StartedAt  time.Time `json:"startedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Registry maps API keys to identities and tracks who is signed in
type Registry struct {
	keys map[string]Identity
	now  func() time.Time

	mu     sync.Mutex
	active map[string]*Session
}

// NewRegistry parses entries of the form "key" or "key:cashierId:Cashier Name".
// A bare key is its own cashier id.
func NewRegistry(entries []string) (*Registry, error) {
	keys := make(map[string]Identity, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, fmt.Errorf("empty api key in entry %q", entry)
		}

		id := Identity{CashierID: key}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			id.CashierID = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			id.CashierName = strings.TrimSpace(parts[2])
		}
		if _, dup := keys[key]; dup {
			return nil, fmt.Errorf("duplicate api key %q", key)
		}
		keys[key] = id
	}

	return &Registry{
		keys:   keys,
		now:    time.Now,
		active: make(map[string]*Session),
	}, nil
}

// Authenticate resolves an API key and marks its session active
func (r *Registry) Authenticate(key string) (Identity, bool) {
	id, ok := r.keys[key]
	if !ok {
		return Identity{}, false
	}

	now := r.now()
	r.mu.Lock()
	s, exists := r.active[id.CashierID]
	if !exists {
		s = &Session{Identity: id, StartedAt: now}
		r.active[id.CashierID] = s
	}
	s.LastSeenAt = now
	r.mu.Unlock()

	return id, true
}

// Logout ends the cashier's session; it reports whether one was active
func (r *Registry) Logout(cashierID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[cashierID]
	delete(r.active, cashierID)
	return ok
}

// Active lists the open sessions ordered by cashier id
func (r *Registry) Active() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Session, 0, len(r.active))
	for _, s := range r.active {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CashierID < out[j].CashierID })
	return out
}
