package sqlhelper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloserReverseOrder(t *testing.T) {
	var order []string
	c := &Closer{}
	for _, name := range []string{"conn", "stmt", "rows"} {
		Acquire(c, closerFunc(func() error {
			order = append(order, name)
			return nil
		}))
	}
	assert.Equal(t, 3, c.Len())

	require.NoError(t, c.Close())
	assert.Equal(t, []string{"rows", "stmt", "conn"}, order)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Close())
	assert.Len(t, order, 3)
}

func TestCloserContinuesAfterFailure(t *testing.T) {
	var closed []string
	boom := errors.New("boom")

	c := &Closer{}
	c.Add(closerFunc(func() error { closed = append(closed, "first"); return nil }))
	c.Add(closerFunc(func() error { panic("bad driver") }))
	c.Add(closerFunc(func() error { closed = append(closed, "third"); return boom }))

	err := c.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"third", "first"}, closed)
	assert.ErrorIs(t, err, boom)

	var rerr *ResourceReleaseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "sqlhelper.closerFunc", rerr.Resource)
	assert.Contains(t, err.Error(), "bad driver")
}

func TestCloserTransfer(t *testing.T) {
	closed := 0
	c := &Closer{}
	c.Add(closerFunc(func() error { closed++; return nil }))
	c.Add(closerFunc(func() error { closed++; return nil }))

	next := c.Transfer()
	require.NoError(t, c.Close())
	assert.Equal(t, 0, closed)
	assert.Equal(t, 2, next.Len())

	require.NoError(t, next.Close())
	assert.Equal(t, 2, closed)
}
