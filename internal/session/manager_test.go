package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booking/internal/api"
	"booking/internal/apitest"
	"booking/internal/auth"
	"booking/internal/store"
)

// MockKV is a mock implementation of KV.
type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockKV) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newManager(t *testing.T) (*Manager, *apitest.Server, *FileStore) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	client := srv.Client()
	fs := NewFileStore(t.TempDir())
	m := NewManager(fs, client)
	client.UseTokens(m)
	return m, srv, fs
}

func TestManager_LoginPersistsAndRestores(t *testing.T) {
	m, srv, fs := newManager(t)
	srv.AddUser("ada@example.com", "pw", "Ada", api.RoleAdmin)
	ctx := context.Background()

	assert.False(t, m.IsAuthenticated())
	u, err := m.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.True(t, m.IsAuthenticated())
	assert.True(t, m.IsAdmin())
	assert.NotEmpty(t, m.Token())

	// A fresh process picks the session up from storage.
	restored := NewManager(fs, srv.Client())
	require.NoError(t, restored.Restore(ctx))
	cur, ok := restored.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", cur.Email)
	assert.Equal(t, m.Token(), restored.Token())
}

func TestManager_LoginFailureKeepsAnonymous(t *testing.T) {
	m, srv, fs := newManager(t)
	srv.AddUser("ada@example.com", "pw", "Ada", api.RoleStudent)

	_, err := m.Login(context.Background(), "ada@example.com", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", api.MessageOf(err, ""))
	assert.False(t, m.IsAuthenticated())

	_, err = fs.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RegisterDefaultsToStudent(t *testing.T) {
	m, _, _ := newManager(t)

	u, err := m.Register(context.Background(), "new@example.com", "pw", "Newbie", "")
	require.NoError(t, err)
	assert.Equal(t, api.RoleStudent, u.Role)
	assert.False(t, m.IsAdmin())
	_, err = m.RequireAdmin()
	assert.ErrorIs(t, err, ErrAdminRequired)
}

func TestManager_LogoutClearsEverything(t *testing.T) {
	m, srv, fs := newManager(t)
	srv.AddUser("ada@example.com", "pw", "Ada", api.RoleStudent)
	ctx := context.Background()
	_, err := m.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.Token())
	_, err = m.RequireUser()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = fs.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, srv.Hits("POST /api/auth/logout"))
}

func TestManager_RestoreDropsExpiredToken(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(t.TempDir())
	tok, _, err := auth.Issue("1", api.RoleStudent, "test", "key", time.Minute)
	require.NoError(t, err)
	require.NoError(t, fs.Save(ctx, Snapshot{Token: tok, User: api.User{ID: 1, Email: "old@example.com"}}))

	m := NewManager(fs, nil)
	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, m.Restore(ctx))
	assert.False(t, m.IsAuthenticated())

	_, err = fs.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RestoreKeepsOpaqueToken(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(t.TempDir())
	require.NoError(t, fs.Save(ctx, Snapshot{Token: "opaque", User: api.User{ID: 9, Name: "Kim"}}))

	m := NewManager(fs, nil)
	require.NoError(t, m.Restore(ctx))
	u, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "Kim", u.Name)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key is no session", func(t *testing.T) {
		kv := new(MockKV)
		kv.On("Get", mock.Anything, "booking:session").Return(nil, store.ErrNotFound)

		_, err := NewRedisStore(kv, "").Load(ctx)
		assert.ErrorIs(t, err, ErrNoSession)
		kv.AssertExpectations(t)
	})

	t.Run("save then load", func(t *testing.T) {
		kv := new(MockKV)
		var saved []byte
		kv.On("Set", mock.Anything, "k", mock.AnythingOfType("[]uint8"), time.Duration(0)).
			Run(func(args mock.Arguments) { saved = args.Get(2).([]byte) }).
			Return(nil)

		s := NewRedisStore(kv, "k")
		require.NoError(t, s.Save(ctx, Snapshot{Token: "t", User: api.User{Name: "Ann"}}))

		kv.On("Get", mock.Anything, "k").Return(saved, nil)
		snap, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "t", snap.Token)
		assert.Equal(t, "Ann", snap.User.Name)
		kv.AssertExpectations(t)
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		kv := new(MockKV)
		kv.On("Get", mock.Anything, "k").Return(nil, errors.New("connection refused"))

		_, err := NewRedisStore(kv, "k").Load(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoSession)
	})

	t.Run("clear deletes key", func(t *testing.T) {
		kv := new(MockKV)
		kv.On("Delete", mock.Anything, "k").Return(nil)
		require.NoError(t, NewRedisStore(kv, "k").Clear(ctx))
		kv.AssertExpectations(t)
	})
}
