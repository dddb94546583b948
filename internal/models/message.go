package models

// Message is one entry in the conversation log. ID is minted at creation;
// older clients may submit records without one, in which case identity falls
// back to (sender, receiver, timestamp).
type Message struct {
	ID        string `json:"id,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds, non-decreasing per store
	Edited    bool   `json:"edited,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"` // set by offline clients; such records are dropped on sync
}

// InConversation reports whether the message belongs to the conversation
// between a and b, in either direction.
func (m Message) InConversation(a, b string) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}

// SameIdentity reports whether two messages refer to the same logical record.
// IDs win when both sides carry one; the timestamp triple is the legacy
// fallback.
func (m Message) SameIdentity(other Message) bool {
	if m.ID != "" && other.ID != "" {
		return m.ID == other.ID
	}
	return m.Sender == other.Sender && m.Receiver == other.Receiver && m.Timestamp == other.Timestamp
}
