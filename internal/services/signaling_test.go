package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSignalingEvent(t *testing.T) {
	req := require.New(t)

	for _, event := range []string{EventOffer, EventAnswer, EventICECandidate, EventCallRequest, EventCallAccept, EventCallEnd} {
		req.True(IsSignalingEvent(event), event)
	}
	req.False(IsSignalingEvent("sendMessage"))
	req.False(IsSignalingEvent(""))
}

func TestSignalingPassThrough(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	reg := newTestRegistry(t, newMemStore())
	fwd := NewSignalingForwarder(NewRelayDispatcher(reg))

	conn := &fakeConn{}
	reg.Register(ctx, "bob", "conn-1", conn)

	payload := json.RawMessage(`{"sender":"alice","receiver":"bob","sdp":"v=0 o=- 42"}`)
	req.True(fwd.Forward(EventOffer, payload))

	// Payload is relayed byte-for-byte under the same label; the server
	// never interprets the SDP.
	frames := conn.sent()
	req.Len(frames, 1)
	req.Equal(EventOffer, frames[0].Event)
	req.Equal(payload, frames[0].Data)
}

func TestSignalingDropsWhenReceiverOffline(t *testing.T) {
	req := require.New(t)
	reg := newTestRegistry(t, newMemStore())
	fwd := NewSignalingForwarder(NewRelayDispatcher(reg))

	req.False(fwd.Forward(EventICECandidate, json.RawMessage(`{"receiver":"bob","candidate":"c"}`)))
}

func TestSignalingRejectsPayloadWithoutReceiver(t *testing.T) {
	req := require.New(t)
	reg := newTestRegistry(t, newMemStore())
	fwd := NewSignalingForwarder(NewRelayDispatcher(reg))

	req.False(fwd.Forward(EventAnswer, json.RawMessage(`{"sdp":"v=0"}`)))
	req.False(fwd.Forward(EventAnswer, json.RawMessage(`not json`)))
}
