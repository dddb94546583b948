package services

import (
	"context"

	"github.com/parleychat/parley-backend/internal/models"
)

// SyncReconciler merges state a client accumulated while offline back into
// the server's authoritative stores. Both merges are deduplicating and
// idempotent: re-submitting the same snapshot changes nothing.
type SyncReconciler struct {
	presence *PresenceRegistry
	messages *MessageStore
}

func NewSyncReconciler(presence *PresenceRegistry, messages *MessageStore) *SyncReconciler {
	return &SyncReconciler{presence: presence, messages: messages}
}

// MergePresence combines a client's offline snapshot with the server
// registry. Local entries win on conflict (most recently observed), entries
// unique to the local snapshot are appended, and the result never contains a
// username twice.
func MergePresence(local, server []models.PresenceEntry) []models.PresenceEntry {
	localByName := make(map[string]models.PresenceEntry, len(local))
	for _, e := range local {
		if _, ok := localByName[e.Username]; !ok {
			localByName[e.Username] = e
		}
	}

	merged := make([]models.PresenceEntry, 0, len(server)+len(local))
	seen := make(map[string]struct{}, len(server)+len(local))
	for _, e := range server {
		if _, ok := seen[e.Username]; ok {
			continue
		}
		seen[e.Username] = struct{}{}
		if le, ok := localByName[e.Username]; ok {
			merged = append(merged, le)
		} else {
			merged = append(merged, e)
		}
	}
	for _, e := range local {
		if _, ok := seen[e.Username]; ok {
			continue
		}
		seen[e.Username] = struct{}{}
		merged = append(merged, e)
	}
	return merged
}

// MergeMessages unions a client's offline messages into the server log. A
// local message is included only when no server message shares its identity;
// records the client flagged as deleted while offline are never added. The
// server log always comes first, so re-running the merge with its own output
// adds nothing.
func MergeMessages(local, server []models.Message) []models.Message {
	merged := make([]models.Message, len(server))
	copy(merged, server)

	for _, lm := range local {
		if lm.Deleted {
			continue
		}
		duplicate := false
		for _, sm := range merged {
			if sm.SameIdentity(lm) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			lm.Deleted = false
			merged = append(merged, lm)
		}
	}
	return merged
}

// SyncPresence merges the local snapshot into the registry, persists the
// result and returns the merged list.
func (r *SyncReconciler) SyncPresence(ctx context.Context, local []models.PresenceEntry) []models.PresenceEntry {
	merged := MergePresence(local, r.presence.Snapshot())
	r.presence.Apply(ctx, merged)
	return r.presence.Snapshot()
}

// SyncMessages merges the local snapshot into the message log, persists the
// result and returns the merged log.
func (r *SyncReconciler) SyncMessages(ctx context.Context, local []models.Message) []models.Message {
	merged := MergeMessages(local, r.messages.All())
	r.messages.Replace(ctx, merged)
	return r.messages.All()
}
