package models

import "time"

// User is an authentication record. The password field holds the argon2id
// hash, never the plaintext; it is persisted but must not be echoed back by
// any handler (responses are shaped explicitly).
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Secret    string    `json:"secret,omitempty"` // optional per-user token signing material
	CreatedAt time.Time `json:"created_at"`
}
