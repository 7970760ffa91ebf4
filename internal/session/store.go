package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"booking/internal/api"
	"booking/internal/store"
)

// ErrNoSession is returned by Store.Load when nothing is persisted.
var ErrNoSession = errors.New("no stored session")

// Snapshot is what survives between runs: the access token and the user record.
type Snapshot struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Store persists the session snapshot.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Clear(ctx context.Context) error
}

// FileStore keeps the snapshot in a JSON file readable only by the owner.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore stores the session at dir/session.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "session.json")}
}

// Path returns the session file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoSession
	}
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode session file: %w", err)
	}
	if snap.Token == "" {
		return Snapshot{}, ErrNoSession
	}
	return snap, nil
}

func (s *FileStore) Save(_ context.Context, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// KV is the subset of the redis wrapper the session needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var _ KV = (*store.Redis)(nil)

// RedisStore keeps the snapshot under a single redis key, letting several
// terminals of one operator share a login.
type RedisStore struct {
	kv  KV
	key string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore stores the session at key.
func NewRedisStore(kv KV, key string) *RedisStore {
	if key == "" {
		key = "booking:session"
	}
	return &RedisStore{kv: kv, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	b, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{}, ErrNoSession
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load session: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode session: %w", err)
	}
	if snap.Token == "" {
		return Snapshot{}, ErrNoSession
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, data, 0)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, s.key)
}
