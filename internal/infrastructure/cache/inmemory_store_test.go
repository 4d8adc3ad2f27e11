package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*InMemoryStore, *time.Time) {
	t.Helper()
	s := NewInMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestInMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(t)

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	*now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	v, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	s.cleanup()
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "b", "missing"))
	assert.Equal(t, 0, s.Len())
}

func TestInMemoryStore_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in, 0))
	in[0] = 'x'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
}

func TestInMemoryStore_Confirmation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		consume func(s *InMemoryStore, now *time.Time, token string) error
		wantErr error
	}{
		{
			name: "matching scope consumes once",
			consume: func(s *InMemoryStore, _ *time.Time, token string) error {
				return s.Consume(ctx, "loan:7:cancel:u1", token)
			},
		},
		{
			name: "other scope is rejected",
			consume: func(s *InMemoryStore, _ *time.Time, token string) error {
				return s.Consume(ctx, "loan:7:cancel:u2", token)
			},
			wantErr: ErrTokenNotFound,
		},
		{
			name: "expired token is rejected",
			consume: func(s *InMemoryStore, now *time.Time, token string) error {
				*now = now.Add(time.Hour)
				return s.Consume(ctx, "loan:7:cancel:u1", token)
			},
			wantErr: ErrTokenNotFound,
		},
		{
			name: "unknown token is rejected",
			consume: func(s *InMemoryStore, _ *time.Time, _ string) error {
				return s.Consume(ctx, "loan:7:cancel:u1", "nope")
			},
			wantErr: ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, now := newTestStore(t)
			token, err := s.Issue(ctx, "loan:7:cancel:u1", time.Minute)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			err = tt.consume(s, now, token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.ErrorIs(t, s.Consume(ctx, "loan:7:cancel:u1", token), ErrTokenNotFound, "token must be single-use")
		})
	}
}

func TestInMemoryStore_CloseIdempotent(t *testing.T) {
	s := NewInMemoryStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
