package stream

import (
	"bufio"
	"encoding/binary"
	"io"
)

// SinkFunc adapts a write callback into an io.Writer. The callback returns
// the number of bytes it accepted; accepting fewer than offered is reported
// as io.ErrShortWrite.
type SinkFunc func(data []byte) int

// Write implements io.Writer.
func (f SinkFunc) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := f(p)
	if n < len(p) {
		if n < 0 {
			n = 0
		}
		return n, io.ErrShortWrite
	}
	return len(p), nil
}

// Writer is a buffered sink with a sticky error: once a write fails every
// later call is a no-op and Flush reports the first failure.
type Writer struct {
	bw  *bufio.Writer
	err error
	n   int64
	buf [4]byte
}

// NewWriter returns a Writer buffering into w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, 4096)}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.bw.Write(p)
	w.n += int64(n)
	w.err = err
	return n, err
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.WriteByte(b)
	if w.err == nil {
		w.n++
	}
	return w.err
}

// WriteBytes writes p, keeping only the error.
func (w *Writer) WriteBytes(p ...byte) {
	_, _ = w.Write(p)
}

// Put16BE writes v big-endian.
func (w *Writer) Put16BE(v uint16) {
	binary.BigEndian.PutUint16(w.buf[:2], v)
	_, _ = w.Write(w.buf[:2])
}

// Put16LE writes v little-endian.
func (w *Writer) Put16LE(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	_, _ = w.Write(w.buf[:2])
}

// Put32BE writes v big-endian.
func (w *Writer) Put32BE(v uint32) {
	binary.BigEndian.PutUint32(w.buf[:4], v)
	_, _ = w.Write(w.buf[:4])
}

// Put32LE writes v little-endian.
func (w *Writer) Put32LE(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	_, _ = w.Write(w.buf[:4])
}

// Count returns the number of bytes accepted so far.
func (w *Writer) Count() int64 { return w.n }

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

// Flush pushes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}
