package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutcAndLine(t *testing.T) {
	s := New()
	for _, c := range []byte("hello\nworld") {
		s.Putc(c)
	}
	assert.Equal(t, "hello", s.Line(0))
	assert.Equal(t, "world", s.Line(1))
	assert.Equal(t, "hello\nworld", s.String())
}

func TestSetTextColor(t *testing.T) {
	s := New()
	assert.Equal(t, byte(0x07), s.Attr())
	s.SetTextColor(0x0A, 0x01)
	assert.Equal(t, byte(0x1A), s.Attr())
}

func TestClear(t *testing.T) {
	s := New()
	s.Putc('x')
	s.Clear()
	assert.Equal(t, byte(' '), s.CharAt(0, 0))
	assert.Equal(t, "", s.String())

	s.Putc('y')
	assert.Equal(t, byte('y'), s.CharAt(0, 0), "cursor homes after clear")
}

func TestWrapAndScroll(t *testing.T) {
	s := New()
	for i := 0; i < Cols+1; i++ {
		s.Putc('a')
	}
	assert.Equal(t, byte('a'), s.CharAt(1, 0), "output wraps at the right edge")

	s.Clear()
	for i := 0; i < Rows+2; i++ {
		s.Putc(byte('A' + i%26))
		s.Putc('\n')
	}
	assert.Equal(t, "", s.Line(Rows-1))
	assert.Equal(t, byte('C'), s.CharAt(0, 0), "top rows scroll off")
}
