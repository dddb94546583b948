package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/parleychat/parley-backend/internal/models"
	"github.com/parleychat/parley-backend/internal/store"
)

// Conn is the minimal interface our WebSocket implementation must satisfy.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// PresenceRegistry maps usernames to their live connection and online status.
// One connection per username is authoritative; registering again replaces a
// stale handle. Entries are never deleted so last-seen times survive
// disconnects. Every mutation writes the full registry through to the
// durable store; a persistence failure is logged and in-memory state remains
// authoritative.
type PresenceRegistry struct {
	store store.Store

	mu      sync.RWMutex
	entries map[string]*models.PresenceEntry
	order   []string          // append order, preserved in persisted snapshots
	conns   map[string]Conn   // username -> live connection
	byConn  map[string]string // connection id -> username, kept in lockstep with entries
}

// NewPresenceRegistry loads the persisted registry. Entries that were online
// when the process last stopped are demoted to offline: no live handle can
// survive a restart.
func NewPresenceRegistry(ctx context.Context, st store.Store) (*PresenceRegistry, error) {
	r := &PresenceRegistry{
		store:   st,
		entries: make(map[string]*models.PresenceEntry),
		conns:   make(map[string]Conn),
		byConn:  make(map[string]string),
	}

	var snapshot []models.PresenceEntry
	if err := st.Load(ctx, store.CollectionActiveUsers, &snapshot); err != nil {
		return nil, err
	}
	for _, e := range snapshot {
		if _, ok := r.entries[e.Username]; ok {
			continue
		}
		entry := e
		entry.ConnID = ""
		entry.Status = models.StatusOffline
		r.entries[entry.Username] = &entry
		r.order = append(r.order, entry.Username)
	}
	return r, nil
}

// Register marks a username online under the given connection. An existing
// entry for the username is overwritten, including one held by a stale
// connection from a previous session.
func (r *PresenceRegistry) Register(ctx context.Context, username, connID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[username]
	if !ok {
		entry = &models.PresenceEntry{Username: username}
		r.entries[username] = entry
		r.order = append(r.order, username)
	}

	// Drop the reverse mapping of a replaced connection so its disconnect
	// cannot knock the new one offline.
	if entry.ConnID != "" && entry.ConnID != connID {
		delete(r.byConn, entry.ConnID)
	}

	entry.ConnID = connID
	entry.Status = models.StatusOnline
	entry.LastChange = time.Now().UnixMilli()
	r.conns[username] = conn
	r.byConn[connID] = username

	r.persistLocked(ctx)
}

// MarkOffline clears the entry owning the given connection id. Unknown ids
// are a no-op, which makes duplicate close notifications harmless.
func (r *PresenceRegistry) MarkOffline(ctx context.Context, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	delete(r.conns, username)

	entry := r.entries[username]
	entry.ConnID = ""
	entry.Status = models.StatusOffline
	entry.LastChange = time.Now().UnixMilli()

	r.persistLocked(ctx)
}

// EnsureEntry creates an offline entry for a username that has never
// connected, so status queries about it have something to return. Existing
// entries are left untouched.
func (r *PresenceRegistry) EnsureEntry(ctx context.Context, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[username]; ok {
		return
	}
	r.entries[username] = &models.PresenceEntry{
		Username:   username,
		Status:     models.StatusOffline,
		LastChange: time.Now().UnixMilli(),
	}
	r.order = append(r.order, username)

	r.persistLocked(ctx)
}

// Lookup returns the current entry for a username. Unknown usernames return
// ok=false, never an error.
func (r *PresenceRegistry) Lookup(username string) (models.PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[username]
	if !ok {
		return models.PresenceEntry{}, false
	}
	return *entry, true
}

// IsOnline reports whether the username has a live connection.
func (r *PresenceRegistry) IsOnline(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[username]
	return ok && entry.Online()
}

// ConnFor returns the live connection for a username, if any.
func (r *PresenceRegistry) ConnFor(username string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[username]
	return conn, ok
}

// Snapshot returns all entries in registration order.
func (r *PresenceRegistry) Snapshot() []models.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *PresenceRegistry) snapshotLocked() []models.PresenceEntry {
	out := make([]models.PresenceEntry, 0, len(r.order))
	for _, username := range r.order {
		out = append(out, *r.entries[username])
	}
	return out
}

// Apply replaces the registry contents with a merged snapshot produced by
// the sync reconciler. Entries for usernames with a live connection are kept
// as-is: a reconnecting client's offline snapshot cannot outrank an open
// socket.
func (r *PresenceRegistry) Apply(ctx context.Context, merged []models.PresenceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make(map[string]*models.PresenceEntry, len(merged))
	order := make([]string, 0, len(merged))
	for _, e := range merged {
		if _, ok := entries[e.Username]; ok {
			continue
		}
		entry := e
		if _, live := r.conns[e.Username]; live {
			entry = *r.entries[e.Username]
		} else {
			entry.ConnID = ""
			entry.Status = models.StatusOffline
		}
		entries[entry.Username] = &entry
		order = append(order, entry.Username)
	}

	// Keep live entries the merged list somehow missed.
	for username := range r.conns {
		if _, ok := entries[username]; !ok {
			entries[username] = r.entries[username]
			order = append(order, username)
		}
	}

	r.entries = entries
	r.order = order

	r.persistLocked(ctx)
}

func (r *PresenceRegistry) persistLocked(ctx context.Context) {
	if err := r.store.Save(ctx, store.CollectionActiveUsers, r.snapshotLocked()); err != nil {
		log.Printf("failed to persist active users: %v", err)
	}
}
