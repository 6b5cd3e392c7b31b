package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicks(t *testing.T) {
	tm := New()
	assert.Equal(t, int32(0), tm.Ticks())
	for i := 0; i < 5; i++ {
		tm.Tick()
	}
	assert.Equal(t, int32(5), tm.Ticks())
}
