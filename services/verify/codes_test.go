package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCodeSixDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewCode()
		require.Len(t, code, 6)
		require.GreaterOrEqual(t, code[0], byte('1'))
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "a@test.dev")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "a@test.dev", "123456"))
	code, err := s.Get(ctx, "a@test.dev")
	require.NoError(t, err)
	require.Equal(t, "123456", code)

	require.NoError(t, s.Delete(ctx, "a@test.dev"))
	_, err = s.Get(ctx, "a@test.dev")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a@test.dev", "123456"))
	s.items["a@test.dev"] = memoryItem{code: "123456", expiresAt: time.Now().Add(-time.Second)}

	_, err := s.Get(ctx, "a@test.dev")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a@test.dev", "111111"))
	require.NoError(t, s.Put(ctx, "a@test.dev", "222222"))

	code, err := s.Get(ctx, "a@test.dev")
	require.NoError(t, err)
	require.Equal(t, "222222", code)
}
