package tx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "civitas/pkg/domain-errors"
)

type counterState struct {
	value int
}

func (c *counterState) Snapshot() func() {
	saved := c.value
	return func() { c.value = saved }
}

func TestMemoryRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit keeps writes", func(t *testing.T) {
		state := &counterState{}
		uow := NewMemory(time.Second, state)
		err := uow.RunInTx(ctx, func(context.Context) error {
			state.value = 3
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, state.value)
	})

	t.Run("error restores every participant", func(t *testing.T) {
		a, b := &counterState{value: 1}, &counterState{value: 2}
		uow := NewMemory(time.Second, a)
		uow.Join(b)
		boom := errors.New("boom")
		err := uow.RunInTx(ctx, func(context.Context) error {
			a.value, b.value = 10, 20
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, a.value)
		assert.Equal(t, 2, b.value)
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		state := &counterState{}
		uow := NewMemory(time.Second, state)
		err := uow.RunInTx(ctx, func(ctx context.Context) error {
			require.NoError(t, uow.RunInTx(ctx, func(context.Context) error {
				state.value = 5
				return nil
			}))
			return errors.New("outer fails")
		})
		require.Error(t, err)
		assert.Equal(t, 0, state.value, "inner writes roll back with the outer transaction")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := NewMemory(0).RunInTx(cctx, func(context.Context) error {
			called = true
			return nil
		})
		assert.False(t, called)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}
