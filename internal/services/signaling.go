package services

import "encoding/json"

// Signaling event labels. The server never interprets these payloads; it is
// a stateless pass-through between the two ends of a call. Call-state
// machines, timeouts and handshake correlation live in the clients.
const (
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
	EventCallRequest  = "call-request"
	EventCallAccept   = "call-accept"
	EventCallEnd      = "call-end"
)

var signalingEvents = map[string]struct{}{
	EventOffer:        {},
	EventAnswer:       {},
	EventICECandidate: {},
	EventCallRequest:  {},
	EventCallAccept:   {},
	EventCallEnd:      {},
}

// signalEnvelope is the only part of a signaling payload the server reads:
// who it is addressed to.
type signalEnvelope struct {
	Receiver string `json:"receiver"`
}

// SignalingForwarder relays call-setup events between two peers via the
// relay dispatcher. An offline receiver means the event is dropped silently;
// the sender is not told the peer was unreachable.
type SignalingForwarder struct {
	relay *RelayDispatcher
}

func NewSignalingForwarder(relay *RelayDispatcher) *SignalingForwarder {
	return &SignalingForwarder{relay: relay}
}

// IsSignalingEvent reports whether the label belongs to the signaling set.
func IsSignalingEvent(event string) bool {
	_, ok := signalingEvents[event]
	return ok
}

// Forward extracts the receiver from the raw payload and passes the payload
// through unmodified under the same event label. Returns false when the
// payload has no receiver or the receiver is offline.
func (f *SignalingForwarder) Forward(event string, payload json.RawMessage) bool {
	var env signalEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Receiver == "" {
		return false
	}
	return f.relay.Forward(env.Receiver, event, payload)
}
