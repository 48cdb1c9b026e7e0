// Package stream provides the byte cursor every decoder reads from and the
// buffered sink every encoder writes to.
package stream

import (
	"errors"
	"io"
)

// DefaultBufferSize is the refill buffer used for callback-backed cursors.
const DefaultBufferSize = 128

var (
	// ErrShortRead is returned by ReadFull when the source ends early.
	ErrShortRead = errors.New("stream: unexpected end of data")

	// ErrNotRewindable is returned by Rewind once the cursor has committed
	// to a forward-only pass over a callback source.
	ErrNotRewindable = errors.New("stream: cursor cannot be rewound")
)

// Callbacks is a pull source. Read fills p and returns the number of bytes
// written, zero meaning end of data. Skip and EOF are optional.
type Callbacks struct {
	Read func(p []byte) int
	Skip func(n int)
	EOF  func() bool
}

// Cursor is a forward reader over either a memory block or a pull source.
// Reading past the end yields zero bytes; callers check AtEOF or use
// ReadFull where a field is structurally required.
type Cursor struct {
	buf []byte
	pos int

	cb      *Callbacks
	scratch []byte
	eof     bool

	// retain keeps every byte pulled from the source in buf so Rewind can
	// replay it. It is cleared by Commit.
	retain   bool
	consumed int64
}

// FromBytes returns a cursor over data. The slice is not copied.
func FromBytes(data []byte) *Cursor {
	return &Cursor{buf: data}
}

// FromCallbacks returns a cursor over a pull source.
func FromCallbacks(cb Callbacks) *Cursor {
	c := &Cursor{
		cb:      &cb,
		scratch: make([]byte, DefaultBufferSize),
		retain:  true,
	}
	c.buf = c.buf[:0]
	c.refill()
	return c
}

// FromReader adapts an io.Reader into a pull source.
func FromReader(r io.Reader) *Cursor {
	var done bool
	cb := Callbacks{
		Read: func(p []byte) int {
			if done {
				return 0
			}
			n, err := io.ReadFull(r, p)
			if err != nil {
				done = true
			}
			return n
		},
		EOF: func() bool { return done },
	}
	if s, ok := r.(io.Seeker); ok {
		cb.Skip = func(n int) {
			if _, err := s.Seek(int64(n), io.SeekCurrent); err != nil {
				done = true
			}
		}
	}
	return FromCallbacks(cb)
}

func (c *Cursor) refill() {
	if c.cb == nil || c.eof {
		return
	}
	n := c.cb.Read(c.scratch)
	if n <= 0 {
		// Synthesize a zero byte so length-prefixed parsers read 0 safely.
		c.eof = true
		if !c.retain {
			c.consumed += int64(c.pos)
			c.buf = c.buf[:0]
			c.pos = 0
		}
		c.buf = append(c.buf, 0)
		return
	}
	if c.retain {
		c.buf = append(c.buf, c.scratch[:n]...)
		return
	}
	c.consumed += int64(c.pos)
	c.buf = append(c.buf[:0], c.scratch[:n]...)
	c.pos = 0
}

func (c *Cursor) available() int {
	if c.eof && c.cb != nil {
		// the synthesized byte is not real data
		if c.pos >= len(c.buf)-1 {
			return 0
		}
		return len(c.buf) - 1 - c.pos
	}
	return len(c.buf) - c.pos
}

// Byte returns the next byte, or 0 at end of data.
func (c *Cursor) Byte() byte {
	if c.pos < len(c.buf) {
		if c.cb != nil && c.eof && c.pos == len(c.buf)-1 {
			return 0
		}
		b := c.buf[c.pos]
		c.pos++
		return b
	}
	if c.cb != nil && !c.eof {
		c.refill()
		return c.Byte()
	}
	return 0
}

// ReadByte implements io.ByteReader.
func (c *Cursor) ReadByte() (byte, error) {
	if c.AtEOF() {
		return 0, io.EOF
	}
	return c.Byte(), nil
}

// PeekByte returns the next byte without consuming it, or -1 at end of data.
func (c *Cursor) PeekByte() int {
	if c.AtEOF() {
		return -1
	}
	return int(c.buf[c.pos])
}

// AtEOF reports whether no more bytes can be read.
func (c *Cursor) AtEOF() bool {
	if c.available() > 0 {
		return false
	}
	if c.cb == nil || c.eof {
		return true
	}
	if c.cb.EOF != nil && c.cb.EOF() {
		return true
	}
	c.refill()
	return c.available() == 0
}

// Read implements io.Reader. It returns io.EOF only when no byte could be
// read.
func (c *Cursor) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if c.available() == 0 {
			if c.AtEOF() {
				break
			}
			continue
		}
		n := copy(p[total:], c.buf[c.pos:c.pos+c.available()])
		c.pos += n
		total += n
	}
	if total == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return total, nil
}

// ReadFull fills p completely or returns ErrShortRead. On a short read the
// unread tail of p is zeroed.
func (c *Cursor) ReadFull(p []byte) error {
	n, _ := c.Read(p)
	if n < len(p) {
		clear(p[n:])
		return ErrShortRead
	}
	return nil
}

// Bytes reads n bytes into a new slice.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrShortRead
	}
	// avoid trusting a huge length field before the data is seen
	if c.cb == nil && n > c.available() {
		c.pos = len(c.buf)
		return nil, ErrShortRead
	}
	p := make([]byte, n)
	if err := c.ReadFull(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Skip advances the cursor by n bytes. A negative n moves it to the end.
func (c *Cursor) Skip(n int) {
	if n < 0 {
		c.pos = len(c.buf)
		if c.cb != nil && !c.eof {
			c.eof = true
			c.buf = append(c.buf, 0)
		}
		return
	}
	if a := c.available(); n <= a {
		c.pos += n
		return
	}
	if c.cb == nil {
		c.pos = len(c.buf)
		return
	}
	n -= c.available()
	c.pos += c.available()
	if c.cb.Skip != nil && !c.retain {
		c.consumed += int64(c.pos) + int64(n)
		c.buf = c.buf[:0]
		c.pos = 0
		c.cb.Skip(n)
		c.refill()
		return
	}
	for n > 0 && !c.AtEOF() {
		k := min(n, c.available())
		c.pos += k
		n -= k
	}
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int64 {
	return c.consumed + int64(c.pos)
}

// Rewind moves the cursor back to the first byte of the stream. Callback
// cursors can rewind only until Commit is called.
func (c *Cursor) Rewind() error {
	if c.cb != nil && !c.retain {
		return ErrNotRewindable
	}
	c.pos = 0
	return nil
}

// Commit drops the replay buffer of a callback cursor, after which the
// cursor streams with a fixed-size buffer and Rewind fails. It is a no-op
// for memory cursors.
func (c *Cursor) Commit() {
	if c.cb == nil || !c.retain {
		return
	}
	c.retain = false
	c.consumed += int64(c.pos)
	c.buf = append(c.buf[:0:0], c.buf[c.pos:]...)
	c.pos = 0
}

// Get16BE reads a big-endian 16-bit value.
func (c *Cursor) Get16BE() uint16 {
	b0 := c.Byte()
	return uint16(b0)<<8 | uint16(c.Byte())
}

// Get16LE reads a little-endian 16-bit value.
func (c *Cursor) Get16LE() uint16 {
	b0 := c.Byte()
	return uint16(b0) | uint16(c.Byte())<<8
}

// Get32BE reads a big-endian 32-bit value.
func (c *Cursor) Get32BE() uint32 {
	hi := c.Get16BE()
	return uint32(hi)<<16 | uint32(c.Get16BE())
}

// Get32LE reads a little-endian 32-bit value.
func (c *Cursor) Get32LE() uint32 {
	lo := c.Get16LE()
	return uint32(lo) | uint32(c.Get16LE())<<16
}
