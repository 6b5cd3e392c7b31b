// Package console is the machine's character device: keyboard input
// queue in, screen output out.
package console

import (
	"io"

	"jos-in-go/kernel/screen"
)

// NoInput is returned by Getc when the input queue is empty.
const NoInput = int32(-1)

// Console routes output characters to the screen and hands out queued
// input one byte at a time.
type Console struct {
	scr  *screen.Screen
	in   []byte
	echo io.Writer // optional mirror of everything written
}

// New wires a console to a screen.
func New(scr *screen.Screen) *Console {
	return &Console{scr: scr}
}

// Echo mirrors all output to w, useful for the demo binary and tests.
func (c *Console) Echo(w io.Writer) { c.echo = w }

// Putc writes one character.
func (c *Console) Putc(ch byte) {
	c.scr.Putc(ch)
	if c.echo != nil {
		c.echo.Write([]byte{ch})
	}
}

// Getc pops one queued input byte, or NoInput when none is waiting.
func (c *Console) Getc() int32 {
	if len(c.in) == 0 {
		return NoInput
	}
	ch := c.in[0]
	c.in = c.in[1:]
	return int32(ch)
}

// Feed queues bytes as keyboard input.
func (c *Console) Feed(b []byte) {
	c.in = append(c.in, b...)
}
