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

// AccountStore holds authentication records. Two implementations exist: the
// default keeps users in the durable snapshot store, and an optional
// PostgreSQL-backed one is selected when POSTGRES_URI is configured.
type AccountStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUser(ctx context.Context, username string) (models.User, bool, error)
}

// SnapshotAccounts stores users in the durable store's users collection,
// rewritten wholesale on every signup.
type SnapshotAccounts struct {
	store store.Store

	mu    sync.Mutex
	users []models.User
}

func NewSnapshotAccounts(ctx context.Context, st store.Store) (*SnapshotAccounts, error) {
	a := &SnapshotAccounts{store: st}
	if err := st.Load(ctx, store.CollectionUsers, &a.users); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SnapshotAccounts) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, u := range a.users {
		if u.Username == user.Username {
			return models.User{}, ErrUsernameTaken
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	a.users = append(a.users, user)

	if err := a.store.Save(ctx, store.CollectionUsers, a.users); err != nil {
		// Keep the in-memory record; durability is best-effort here, same
		// as the presence and message stores.
		log.Printf("failed to persist users: %v", err)
	}
	return user, nil
}

func (a *SnapshotAccounts) FindUser(_ context.Context, username string) (models.User, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, u := range a.users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return models.User{}, false, nil
}
