package gif

import (
	"io"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Frame is one composited animation frame.
type Frame struct {
	// Pix holds Width*Height*4 RGBA bytes of the full canvas.
	Pix []byte

	// Delay is the display time in hundredths of a second.
	Delay int

	// Disposal is the method applied before the following frame.
	Disposal int
}

// Animation iterates over the frames of a GIF.
type Animation struct {
	Width  int
	Height int

	d    *decoder
	done bool
}

// NewAnimation reads the header and returns an iterator positioned at the
// first frame.
func NewAnimation(cur *stream.Cursor) (*Animation, error) {
	d := newDecoder(cur)
	if err := d.readHeader(); err != nil {
		return nil, err
	}
	return &Animation{Width: d.width, Height: d.height, d: d}, nil
}

// Next returns the next composited frame. It returns io.EOF after the last
// frame. The returned pixels are a copy and stay valid across calls.
func (a *Animation) Next() (*Frame, error) {
	if a.done {
		return nil, io.EOF
	}
	ok, err := a.d.nextFrame()
	if err != nil {
		a.done = true
		return nil, err
	}
	if !ok {
		a.done = true
		return nil, io.EOF
	}
	pix := make([]byte, len(a.d.out))
	copy(pix, a.d.out)
	return &Frame{Pix: pix, Delay: a.d.lastDelay, Disposal: a.d.lastDisp}, nil
}

// Frames returns the number of frames read so far.
func (a *Animation) Frames() int { return a.d.frames }

// All is a fully decoded animation.
type All struct {
	Width    int
	Height   int
	Channels int
	Frames   []*codec.Image
	Delays   []int
}

// DecodeAll decodes every frame. Channel conversion and flipping from opts
// apply to each frame.
func DecodeAll(cur *stream.Cursor, opts *codec.DecodeOptions) (*All, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	a, err := NewAnimation(cur)
	if err != nil {
		return nil, err
	}
	all := &All{Width: a.Width, Height: a.Height, Channels: opts.Want(4)}
	for {
		f, err := a.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		all.Frames = append(all.Frames, codec.Finish(f.Pix, a.Width, a.Height, 4, opts))
		all.Delays = append(all.Delays, f.Delay)
	}
	if len(all.Frames) == 0 {
		return nil, ErrNoFrames
	}
	return all, nil
}
