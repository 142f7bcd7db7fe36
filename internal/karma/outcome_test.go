package karma

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_FirstSettleWins(t *testing.T) {
	o := newOutcome[int]()
	assert.False(t, o.Settled())

	assert.True(t, o.resolve(8080))
	assert.False(t, o.cancel(ErrStartCancelled))
	assert.False(t, o.resolve(9090))
	assert.True(t, o.Settled())

	v, err := o.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 8080, v)
}

func TestOutcome_Result(t *testing.T) {
	o := newOutcome[int]()
	_, ok, _ := o.Result()
	assert.False(t, ok)

	o.cancel(ErrStartTimeout)
	v, ok, err := o.Result()
	assert.True(t, ok)
	assert.Zero(t, v)
	assert.ErrorIs(t, err, ErrStartTimeout)
}

func TestOutcome_Cancel(t *testing.T) {
	o := newOutcome[int]()
	assert.True(t, o.cancel(ErrStartTimeout))

	v, err := o.Wait(context.Background())
	assert.Zero(t, v)
	assert.True(t, errors.Is(err, ErrStartCancelled))
}

func TestOutcome_WaitHonoursContext(t *testing.T) {
	o := newOutcome[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := o.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, o.Settled(), "a caller giving up must not settle the outcome")

	select {
	case <-o.Done():
		t.Fatal("done closed without a settle")
	default:
	}
}
