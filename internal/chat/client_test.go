package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandle struct {
	bufHandle
	closes int
}

func (h *countingHandle) Close() error {
	h.closes++
	return h.bufHandle.Close()
}

func TestClientSend(t *testing.T) {
	c, h := newTestClient("alice")
	require.NoError(t, c.Send("bob: hi\n"))
	assert.Equal(t, "bob: hi\n", h.String())
	assert.False(t, c.ConnectedAt.IsZero())
}

func TestClientCloseOnce(t *testing.T) {
	h := &countingHandle{}
	c := NewClient("id1", "alice", h)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, h.closes)
}

func TestClientSendAfterCloseFails(t *testing.T) {
	c, _ := newTestClient("alice")
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send("late"), errHandleClosed)
}
