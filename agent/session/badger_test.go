package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		role := contractx.RoleUser
		if i%2 == 1 {
			role = contractx.RoleAssistant
		}
		err := store.Append(ctx, "s1", contractx.Item{
			Role:    role,
			Content: fmt.Sprintf("message %02d", i),
		})
		require.NoError(t, err)
	}

	items, err := store.Items(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 25)
	for i, item := range items {
		require.Equal(t, fmt.Sprintf("message %02d", i), item.Content)
		require.NotEmpty(t, item.ID)
		require.False(t, item.CreatedAt.IsZero())
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", contractx.Item{Role: contractx.RoleUser, Content: "hello a"}))
	require.NoError(t, store.Append(ctx, "b", contractx.Item{Role: contractx.RoleUser, Content: "hello b"}))

	itemsA, err := store.Items(ctx, "a")
	require.NoError(t, err)
	require.Len(t, itemsA, 1)
	require.Equal(t, "hello a", itemsA[0].Content)

	require.NoError(t, store.Clear(ctx, "a"))

	itemsB, err := store.Items(ctx, "b")
	require.NoError(t, err)
	require.Len(t, itemsB, 1)
}

func TestClearThenAppend(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(ctx, "s1", contractx.Item{
			Role:    contractx.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		}))
	}

	require.NoError(t, store.Clear(ctx, "s1"))

	items, err := store.Items(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, items)

	// clearing twice is a no-op
	require.NoError(t, store.Clear(ctx, "s1"))

	require.NoError(t, store.Append(ctx, "s1", contractx.Item{Role: contractx.RoleUser, Content: "fresh"}))
	items, err = store.Items(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "fresh", items[0].Content)
}

func TestActiveSpecialistPointer(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	active, err := store.ActiveSpecialist(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, contractx.SpecialistTriage, active)

	require.NoError(t, store.SetActiveSpecialist(ctx, "s1", contractx.SpecialistBilling))

	active, err = store.ActiveSpecialist(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, contractx.SpecialistBilling, active)

	// clear returns ownership to the triage router
	require.NoError(t, store.Clear(ctx, "s1"))
	active, err = store.ActiveSpecialist(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, contractx.SpecialistTriage, active)
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, store.Append(ctx, "  ", contractx.Item{Role: contractx.RoleUser, Content: "x"}), ErrInvalidSession)
	require.ErrorIs(t, store.Append(ctx, "s1", contractx.Item{Role: contractx.RoleUser, Content: "  "}), ErrNilItem)

	_, err := store.Items(ctx, "")
	require.ErrorIs(t, err, ErrInvalidSession)

	require.ErrorIs(t, store.Clear(ctx, ""), ErrInvalidSession)
}
