package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfirmStoreSaveConsume(t *testing.T) {
	cs := NewMemoryConfirmStore()

	cs.Save("c1", "u1", ConfirmWindow)
	assert.True(t, cs.Consume("c1", "u1"))
}

func TestConfirmStoreSingleUse(t *testing.T) {
	cs := NewMemoryConfirmStore()

	cs.Save("c1", "u1", ConfirmWindow)
	assert.True(t, cs.Consume("c1", "u1"))
	assert.False(t, cs.Consume("c1", "u1"))
}

func TestConfirmStoreKeyedByChannelAndActor(t *testing.T) {
	cs := NewMemoryConfirmStore()

	cs.Save("c1", "u1", ConfirmWindow)
	assert.False(t, cs.Consume("c1", "other"))
	assert.False(t, cs.Consume("c2", "u1"))
	assert.True(t, cs.Consume("c1", "u1"))
}

func TestConfirmStoreExpiry(t *testing.T) {
	cs := NewMemoryConfirmStore()

	cs.Save("c1", "u1", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	assert.False(t, cs.Consume("c1", "u1"))
}

func TestConfirmStoreNoPending(t *testing.T) {
	cs := NewMemoryConfirmStore()
	assert.False(t, cs.Consume("c1", "u1"))
}

func TestClampTTL(t *testing.T) {
	assert.Equal(t, ConfirmWindow, clampTTL(0))
	assert.Equal(t, ConfirmWindow, clampTTL(-time.Second))
	assert.Equal(t, ConfirmWindow, clampTTL(5*time.Minute))
	assert.Equal(t, 10*time.Second, clampTTL(10*time.Second))
}
