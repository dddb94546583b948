package services

import "log"

// Event labels delivered to clients.
const (
	EventUserStatus     = "userStatus"
	EventAllMessages    = "allMessages"
	EventReceiveMessage = "receiveMessage"
	EventMessageEdited  = "messageEdited"
	EventMessageDeleted = "messageDeleted"
)

// Frame is the wire envelope for every event sent over a connection.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// RelayDispatcher forwards events to the live connection of a named user.
// Delivery is fire-and-forget and at-most-once: an offline target means the
// event is dropped, with no buffering and no retry. The return value tells
// the caller whether delivery was attempted successfully; most call sites
// ignore it today, but it is exposed for the ones that should not.
type RelayDispatcher struct {
	presence *PresenceRegistry
}

func NewRelayDispatcher(presence *PresenceRegistry) *RelayDispatcher {
	return &RelayDispatcher{presence: presence}
}

// Forward delivers payload tagged with the event label to the target's live
// connection. Returns false when the target is offline or the write failed.
func (d *RelayDispatcher) Forward(target, event string, payload interface{}) bool {
	conn, ok := d.presence.ConnFor(target)
	if !ok {
		return false
	}
	if err := conn.WriteJSON(Frame{Event: event, Data: payload}); err != nil {
		log.Printf("failed to relay %s to %s: %v", event, target, err)
		return false
	}
	return true
}
