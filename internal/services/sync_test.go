package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley-backend/internal/models"
)

func TestMergePresenceLocalWinsNoDuplicates(t *testing.T) {
	req := require.New(t)

	server := []models.PresenceEntry{
		{Username: "alice", Status: models.StatusOffline, LastChange: 100},
		{Username: "bob", Status: models.StatusOffline, LastChange: 200},
	}
	local := []models.PresenceEntry{
		{Username: "bob", Status: models.StatusOffline, LastChange: 999}, // more recently observed
		{Username: "carol", Status: models.StatusOffline, LastChange: 300},
	}

	merged := MergePresence(local, server)
	req.Len(merged, 3)
	req.Equal("alice", merged[0].Username)
	req.Equal("bob", merged[1].Username)
	req.EqualValues(999, merged[1].LastChange) // local entry won
	req.Equal("carol", merged[2].Username)

	seen := map[string]int{}
	for _, e := range merged {
		seen[e.Username]++
	}
	for username, n := range seen {
		req.Equal(1, n, username)
	}
}

func TestMergeMessagesDeduplicatesByIDAndByTriple(t *testing.T) {
	req := require.New(t)

	server := []models.Message{
		{ID: "m1", Sender: "alice", Receiver: "bob", Body: "server copy", Timestamp: 1000},
		{Sender: "bob", Receiver: "alice", Body: "legacy", Timestamp: 2000},
	}
	local := []models.Message{
		{ID: "m1", Sender: "alice", Receiver: "bob", Body: "stale local copy", Timestamp: 1000},
		{Sender: "bob", Receiver: "alice", Body: "legacy", Timestamp: 2000}, // same triple, no id
		{ID: "m3", Sender: "alice", Receiver: "bob", Body: "new while offline", Timestamp: 3000},
	}

	merged := MergeMessages(local, server)
	req.Len(merged, 3)
	req.Equal("server copy", merged[0].Body) // server wins on identity conflict
	req.Equal("legacy", merged[1].Body)
	req.Equal("new while offline", merged[2].Body)
}

func TestMergeMessagesIsIdempotent(t *testing.T) {
	req := require.New(t)

	server := []models.Message{
		{ID: "m1", Sender: "alice", Receiver: "bob", Body: "one", Timestamp: 1000},
	}
	local := []models.Message{
		{ID: "m2", Sender: "bob", Receiver: "alice", Body: "two", Timestamp: 2000},
	}

	once := MergeMessages(local, server)
	twice := MergeMessages(local, once)
	req.Equal(once, twice)
}

func TestMergeMessagesSkipsLocallyDeletedRecords(t *testing.T) {
	req := require.New(t)

	local := []models.Message{
		{ID: "m1", Sender: "alice", Receiver: "bob", Body: "tombstone", Timestamp: 1000, Deleted: true},
		{ID: "m2", Sender: "alice", Receiver: "bob", Body: "kept", Timestamp: 2000},
	}

	merged := MergeMessages(local, nil)
	req.Len(merged, 1)
	req.Equal("m2", merged[0].ID)
}

func TestSyncMessagesPersistsAndConverges(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	st := newMemStore()

	messages, err := NewMessageStore(ctx, st)
	req.NoError(err)
	reg := newTestRegistry(t, st)
	reconciler := NewSyncReconciler(reg, messages)

	server := messages.Append(ctx, "alice", "bob", "already here")

	local := []models.Message{
		{ID: server.ID, Sender: "alice", Receiver: "bob", Body: "already here", Timestamp: server.Timestamp},
		{ID: "offline-1", Sender: "bob", Receiver: "alice", Body: "typed on the plane", Timestamp: server.Timestamp + 1},
	}

	merged := reconciler.SyncMessages(ctx, local)
	req.Len(merged, 2)

	// Re-submitting the same snapshot adds nothing.
	again := reconciler.SyncMessages(ctx, local)
	req.Equal(merged, again)

	// The merged log survives a restart.
	reloaded, err := NewMessageStore(ctx, st)
	req.NoError(err)
	req.Len(reloaded.All(), 2)
}

func TestSyncPresenceDoesNotDemoteLiveConnections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	st := newMemStore()

	reg := newTestRegistry(t, st)
	messages, err := NewMessageStore(ctx, st)
	req.NoError(err)
	reconciler := NewSyncReconciler(reg, messages)

	reg.Register(ctx, "alice", "conn-1", &fakeConn{})

	// A reconnecting client's stale snapshot claims alice is offline.
	local := []models.PresenceEntry{
		{Username: "alice", Status: models.StatusOffline, LastChange: 1},
		{Username: "dave", Status: models.StatusOffline, LastChange: 2},
	}

	merged := reconciler.SyncPresence(ctx, local)

	byName := map[string]models.PresenceEntry{}
	for _, e := range merged {
		byName[e.Username] = e
	}
	req.Equal(models.StatusOnline, byName["alice"].Status) // open socket outranks the snapshot
	req.Equal(models.StatusOffline, byName["dave"].Status)
	req.True(reg.IsOnline("alice"))
}
