package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-reports/internal/domain"
)

type mockRegistrar struct {
	ExistsFunc func(ctx context.Context, key string) (bool, error)
	CreateFunc func(ctx context.Context, key string, payload []byte) error
}

func (m *mockRegistrar) Exists(ctx context.Context, key string) (bool, error) {
	return m.ExistsFunc(ctx, key)
}

func (m *mockRegistrar) Create(ctx context.Context, key string, payload []byte) error {
	return m.CreateFunc(ctx, key, payload)
}

func TestAnnounce(t *testing.T) {
	tests := []struct {
		name        string
		exists      bool
		existsErr   error
		createErr   error
		wantCreated bool
		wantErr     bool
	}{
		{name: "creates missing key", wantCreated: true},
		{name: "leaves existing key alone", exists: true},
		{name: "exists failure", existsErr: errors.New("connection refused"), wantErr: true},
		{name: "create failure", createErr: errors.New("READONLY"), wantCreated: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			reg := &mockRegistrar{
				ExistsFunc: func(_ context.Context, key string) (bool, error) {
					assert.Equal(t, "/big_data_node", key)
					return tt.exists, tt.existsErr
				},
				CreateFunc: func(_ context.Context, _ string, payload []byte) error {
					created = true
					assert.Equal(t, "Initial data", string(payload))
					return tt.createErr
				},
			}

			err := Announce(context.Background(), reg, "/big_data_node", []byte("Initial data"))

			assert.Equal(t, tt.wantCreated, created)
			if tt.wantErr {
				var regErr *domain.RegistrationError
				require.True(t, errors.As(err, &regErr))
				assert.Equal(t, "/big_data_node", regErr.Key)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMemoryRegistrar(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistrar()

	require.NoError(t, Announce(ctx, reg, "k", []byte("first")))
	require.NoError(t, Announce(ctx, reg, "k", []byte("second")))

	payload, ok := reg.Payload("k")
	assert.True(t, ok)
	assert.Equal(t, "first", string(payload))
}

type fakeRedis struct {
	existsVal int64
	existsErr error
	setErr    error
	setKey    string
	setValue  interface{}
	setTTL    time.Duration
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	return redis.NewIntResult(f.existsVal, f.existsErr)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.setKey, f.setValue, f.setTTL = key, value, expiration
	return redis.NewBoolResult(f.setErr == nil, f.setErr)
}

func TestRedisRegistrar(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		r := &RedisRegistrar{client: &fakeRedis{existsVal: 1}}
		ok, err := r.Exists(ctx, "/big_data_node")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("exists error", func(t *testing.T) {
		r := &RedisRegistrar{client: &fakeRedis{existsErr: errors.New("dial tcp: refused")}}
		_, err := r.Exists(ctx, "/big_data_node")
		assert.ErrorContains(t, err, "EXISTS")
	})

	t.Run("create uses SETNX without expiry", func(t *testing.T) {
		fake := &fakeRedis{}
		r := &RedisRegistrar{client: fake}
		require.NoError(t, r.Create(ctx, "/big_data_node", []byte("Initial data")))
		assert.Equal(t, "/big_data_node", fake.setKey)
		assert.Equal(t, []byte("Initial data"), fake.setValue)
		assert.Zero(t, fake.setTTL)
	})

	t.Run("close without client", func(t *testing.T) {
		assert.NoError(t, (&RedisRegistrar{}).Close())
	})
}
