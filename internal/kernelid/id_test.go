package kernelid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WellFormed(t *testing.T) {
	id := New()
	assert.True(t, Valid(id))
	assert.Len(t, string(id), 36)
	assert.Equal(t, byte('7'), string(id)[14])
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[StreamID]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id], "duplicate id generated")
		seen[id] = true
	}
}

func TestValid_Rejects(t *testing.T) {
	assert.False(t, Valid("not-a-uuid"))
}
