package vorbis

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
)

var errNoPage = errors.New("vorbis: no page buffered")

// PushDecoder decodes a stream delivered in arbitrary chunks. It consumes
// whole pages only; the caller keeps unconsumed bytes and appends more.
type PushDecoder struct {
	st      state
	queue   []*page
	packets packetReader
}

// NewPushDecoder returns a decoder waiting for the first page.
func NewPushDecoder(opts *Options) (*PushDecoder, error) {
	if opts != nil {
		if err := opts.Validate(); err != nil {
			return nil, err
		}
	}
	p := &PushDecoder{}
	p.st.opts = opts
	p.packets.nextPage = func() (*page, error) {
		if len(p.queue) == 0 {
			return nil, errNoPage
		}
		pg := p.queue[0]
		p.queue = p.queue[1:]
		return pg, nil
	}
	return p, nil
}

// Info returns the stream parameters, zero until the headers are read.
func (p *PushDecoder) Info() Info { return p.st.s.info }

// Comments returns the comment header, empty until it is read.
func (p *PushDecoder) Comments() Comments { return p.st.s.comments }

// Decode consumes pages from the start of data until a block of samples
// is ready. It returns the number of bytes consumed, which is meaningful
// on every return. ErrNeedMoreData asks for data to be appended to the
// unconsumed remainder; io.EOF follows the last page of the stream.
func (p *PushDecoder) Decode(data []byte) (used int, frame [][]float32, err error) {
	for {
		pk, perr := p.packets.next()
		switch {
		case perr == nil:
			if !p.st.ready() {
				if err := p.st.header(pk.data); err != nil {
					return used, nil, err
				}
				continue
			}
			out, err := p.st.audio(pk)
			if errors.Is(err, ErrBadPacket) {
				slog.Debug("vorbis: skipping packet", slog.Any("err", err))
				continue
			}
			if err != nil {
				return used, nil, err
			}
			if frameLen(out) > 0 {
				return used, out, nil
			}
			continue
		case errors.Is(perr, io.EOF):
			return used, nil, io.EOF
		case !errors.Is(perr, errNoPage):
			return used, nil, perr
		}

		rest := data[used:]
		size, err := pageLength(rest)
		if errors.Is(err, ErrBadPage) {
			idx := bytes.Index(rest[1:], []byte(capture))
			if idx < 0 {
				// keep a tail that may hold the start of a capture pattern
				used += max(len(rest)-len(capture)+1, 0)
				return used, nil, ErrNeedMoreData
			}
			used += idx + 1
			continue
		}
		if err != nil || len(rest) < size {
			return used, nil, ErrNeedMoreData
		}
		pg, err := parsePage(bytes.Clone(rest[:size]))
		used += size
		if err != nil {
			if !p.st.ready() {
				return used, nil, err
			}
			slog.Debug("vorbis: dropping page with bad checksum")
			continue
		}
		p.queue = append(p.queue, pg)
	}
}

// Flush discards buffered pages and the block overlap, for use after the
// caller jumps to another position in the stream. The next samples are
// positioned by the next granule seen.
func (p *PushDecoder) Flush() {
	p.queue = nil
	p.packets.reset()
	if p.st.ready() {
		p.st.restart()
	}
}
