package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parleychat/parley-backend/internal/models"
	"github.com/parleychat/parley-backend/internal/store"
)

// MessageStore is the ordered conversation log. Append order is preserved;
// timestamps are clamped so they never decrease even when the wall clock
// does. Every mutation writes the full log through to the durable store;
// persistence failures are logged and the in-memory log stays authoritative.
type MessageStore struct {
	store store.Store

	mu       sync.RWMutex
	messages []models.Message
	lastTS   int64
}

// NewMessageStore loads the persisted log.
func NewMessageStore(ctx context.Context, st store.Store) (*MessageStore, error) {
	s := &MessageStore{store: st}
	if err := st.Load(ctx, store.CollectionMessages, &s.messages); err != nil {
		return nil, err
	}
	for _, m := range s.messages {
		if m.Timestamp > s.lastTS {
			s.lastTS = m.Timestamp
		}
	}
	return s, nil
}

// now returns the current unix-ms timestamp, never less than the last one
// handed out. Messages sent within the same millisecond share a timestamp;
// identity then rests on the generated id.
func (s *MessageStore) now() int64 {
	ts := time.Now().UnixMilli()
	if ts < s.lastTS {
		ts = s.lastTS
	}
	s.lastTS = ts
	return ts
}

// Append creates a message, assigns its id and timestamp and persists the
// log. The created record is returned for relaying.
func (s *MessageStore) Append(ctx context.Context, sender, receiver, body string) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		Body:      body,
		Timestamp: s.now(),
	}
	s.messages = append(s.messages, msg)

	s.persistLocked(ctx)
	return msg
}

// Edit replaces the body of the message matching ref's identity and flags it
// as edited. The boolean reports whether a match was found; a miss is a
// negative ack, not an error. When several legacy records share the same
// (sender, receiver, timestamp), the first in store order is affected.
func (s *MessageStore) Edit(ctx context.Context, ref models.Message, body string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if !s.messages[i].SameIdentity(ref) {
			continue
		}
		s.messages[i].Body = body
		s.messages[i].Edited = true
		s.persistLocked(ctx)
		return s.messages[i], true
	}
	return models.Message{}, false
}

// Delete removes the single message matching ref's identity. The boolean
// reports whether anything was removed.
func (s *MessageStore) Delete(ctx context.Context, ref models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if !s.messages[i].SameIdentity(ref) {
			continue
		}
		s.messages = append(s.messages[:i], s.messages[i+1:]...)
		s.persistLocked(ctx)
		return true
	}
	return false
}

// DeleteConversation removes every message between the two usernames, in
// both directions. Deleting an already-empty conversation is a no-op.
func (s *MessageStore) DeleteConversation(ctx context.Context, a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	removed := false
	for _, m := range s.messages {
		if m.InConversation(a, b) {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	if removed {
		s.persistLocked(ctx)
	}
}

// Conversation returns all messages between the two usernames in original
// append order, regardless of direction.
func (s *MessageStore) Conversation(a, b string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Message{}
	for _, m := range s.messages {
		if m.InConversation(a, b) {
			out = append(out, m)
		}
	}
	return out
}

// All returns a copy of the full log, used by the sync reconciler.
func (s *MessageStore) All() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Replace swaps in a merged log produced by the sync reconciler and
// persists it.
func (s *MessageStore) Replace(ctx context.Context, merged []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]models.Message, len(merged))
	copy(s.messages, merged)
	for _, m := range s.messages {
		if m.Timestamp > s.lastTS {
			s.lastTS = m.Timestamp
		}
	}

	s.persistLocked(ctx)
}

func (s *MessageStore) persistLocked(ctx context.Context) {
	snapshot := s.messages
	if snapshot == nil {
		snapshot = []models.Message{}
	}
	if err := s.store.Save(ctx, store.CollectionMessages, snapshot); err != nil {
		log.Printf("failed to persist messages: %v", err)
	}
}
