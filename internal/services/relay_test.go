package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardToOnlineUser(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	reg := newTestRegistry(t, newMemStore())
	relay := NewRelayDispatcher(reg)

	conn := &fakeConn{}
	reg.Register(ctx, "bob", "conn-1", conn)

	req.True(relay.Forward("bob", EventReceiveMessage, "payload"))

	frames := conn.sent()
	req.Len(frames, 1)
	req.Equal(EventReceiveMessage, frames[0].Event)
	req.Equal("payload", frames[0].Data)
}

func TestForwardToOfflineUserDropsSilently(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	reg := newTestRegistry(t, newMemStore())
	relay := NewRelayDispatcher(reg)

	reg.EnsureEntry(ctx, "bob")
	before := reg.Snapshot()

	req.False(relay.Forward("bob", EventReceiveMessage, "payload"))
	req.False(relay.Forward("stranger", EventReceiveMessage, "payload"))

	// No observable side effect on the registry.
	req.Equal(before, reg.Snapshot())
}

func TestForwardReportsWriteFailure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	reg := newTestRegistry(t, newMemStore())
	relay := NewRelayDispatcher(reg)

	conn := &fakeConn{failWrite: true}
	reg.Register(ctx, "bob", "conn-1", conn)

	req.False(relay.Forward("bob", EventReceiveMessage, "payload"))
}
