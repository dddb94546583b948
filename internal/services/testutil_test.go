package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// memStore is an in-memory snapshot store for tests. failSave simulates a
// durable-store outage.
type memStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	failSave bool
	saves    int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Load(_ context.Context, collection string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[collection]
	if !ok {
		return nil
	}
	return json.Unmarshal(b, out)
}

func (s *memStore) Save(_ context.Context, collection string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("save failed")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.data[collection] = b
	s.saves++
	return nil
}

// fakeConn records every frame written to it.
type fakeConn struct {
	mu        sync.Mutex
	frames    []Frame
	failWrite bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrite {
		return errors.New("write failed")
	}
	c.frames = append(c.frames, v.(Frame))
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) sent() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.frames))
	copy(out, c.frames)
	return out
}
