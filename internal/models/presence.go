package models

// PresenceStatus is either online or offline.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceEntry records whether a username currently has a live connection.
// ConnID is set iff Status is online. Entries are never deleted so the
// last-seen time survives disconnects.
type PresenceEntry struct {
	Username   string         `json:"username"`
	ConnID     string         `json:"conn_id,omitempty"`
	Status     PresenceStatus `json:"status"`
	LastChange int64          `json:"last_change"` // unix milliseconds
}

// Online reports whether the entry represents a live connection.
func (e PresenceEntry) Online() bool {
	return e.Status == StatusOnline
}
