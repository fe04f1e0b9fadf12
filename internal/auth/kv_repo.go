package auth

import (
	"encoding/json"
	"fmt"
	"sync"

	"gitbrand/internal/kv"
)

// KeyAllowlist is the kv key the allowlist is stored under.
const KeyAllowlist = "allowlist"

// KVRepository keeps the allowlist as one JSON array in a kv.Store.
type KVRepository struct {
	store kv.Store
	mu    sync.Mutex
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) LoadAll() ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *KVRepository) Upsert(user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	updated := false
	for i, u := range users {
		if u.ID == user.ID {
			users[i] = user
			updated = true
			break
		}
	}
	if !updated {
		users = append(users, user)
	}
	return r.saveUnlocked(users)
}

func (r *KVRepository) Remove(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	out := users[:0]
	for _, u := range users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return r.saveUnlocked(out)
}

// loadUnlocked treats a missing or malformed entry as an empty list.
func (r *KVRepository) loadUnlocked() ([]User, error) {
	raw, ok, err := r.store.Get(KeyAllowlist)
	if err != nil {
		return nil, fmt.Errorf("load allowlist: %w", err)
	}
	if !ok || raw == "" {
		return []User{}, nil
	}
	var users []User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return []User{}, nil
	}
	return users, nil
}

func (r *KVRepository) saveUnlocked(users []User) error {
	b, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode allowlist: %w", err)
	}
	return r.store.Set(KeyAllowlist, string(b))
}
