// Package vorbis decodes Ogg Vorbis audio into float or 16-bit PCM.
//
// A Decoder pulls pages from an io.ReadSeeker and supports sample
// accurate seeking. A PushDecoder accepts the stream in arbitrary chunks.
// Floor type 0, used by no known encoder, is not supported.
package vorbis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/cocosip/go-media-codec/common"
)

// Decoder decodes a seekable Ogg Vorbis stream.
type Decoder struct {
	st      state
	rs      io.ReadSeeker
	pr      *pageReader
	packets packetReader

	audioStart int64 // offset of the first page after the headers

	index   []pageMark
	indexed bool

	pending [][]float32
	closed  bool
}

// pageMark records a page that completes at least one packet.
type pageMark struct {
	offset, end int64
	granule     int64
	last        bool
}

// Audio is a fully decoded stream.
type Audio struct {
	Channels   int
	SampleRate int
	Samples    []int16 // interleaved
}

// Open opens an in-memory stream.
func Open(data []byte, opts *Options) (*Decoder, error) {
	return OpenReader(bytes.NewReader(data), opts)
}

// OpenReader reads the three header packets from rs and prepares to
// decode audio.
func OpenReader(rs io.ReadSeeker, opts *Options) (*Decoder, error) {
	if opts != nil {
		if err := opts.Validate(); err != nil {
			return nil, err
		}
	}
	d := &Decoder{rs: rs, pr: newPageReader(rs)}
	d.st.opts = opts
	d.packets.nextPage = d.nextPage
	for !d.st.ready() {
		pk, err := d.packets.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if d.st.headers == 0 {
					return nil, ErrNotVorbis
				}
				return nil, ErrTruncated
			}
			return nil, err
		}
		if err := d.st.header(pk.data); err != nil {
			return nil, err
		}
	}
	cur := d.packets.cur
	d.audioStart = cur.offset + int64(cur.size)
	if d.packets.seg < len(cur.lacing) {
		slog.Debug("vorbis: audio shares a page with the setup header", slog.Int64("offset", cur.offset))
	}
	info := d.st.s.info
	slog.Debug("vorbis: opened stream",
		slog.Int("channels", info.Channels),
		slog.Int("rate", info.SampleRate),
		slog.Int("blocksize0", info.Blocksize0),
		slog.Int("blocksize1", info.Blocksize1))
	return d, nil
}

// nextPage feeds the packet reader. Once the headers are read, pages with
// bad checksums are dropped.
func (d *Decoder) nextPage() (*page, error) {
	for {
		p, err := d.pr.next()
		switch {
		case errors.Is(err, ErrBadPage):
			continue
		case errors.Is(err, ErrBadCRC) && d.st.ready():
			slog.Debug("vorbis: dropping page with bad checksum", slog.Int64("offset", d.pr.off))
			continue
		}
		return p, err
	}
}

// Info returns the stream parameters.
func (d *Decoder) Info() Info { return d.st.s.info }

// Comments returns the comment header.
func (d *Decoder) Comments() Comments { return d.st.s.comments }

// Position returns the index of the next sample to be returned.
func (d *Decoder) Position() int64 {
	return d.st.loc - int64(frameLen(d.pending))
}

// DecodeFrame returns the next block of samples, one slice per channel.
// It returns io.EOF after the last block.
func (d *Decoder) DecodeFrame() ([][]float32, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if d.pending != nil {
		f := d.pending
		d.pending = nil
		return f, nil
	}
	for {
		pk, err := d.packets.next()
		if err != nil {
			return nil, err
		}
		out, err := d.st.audio(pk)
		if err != nil {
			if errors.Is(err, ErrBadPacket) {
				slog.Debug("vorbis: skipping packet", slog.Any("err", err))
				continue
			}
			return nil, err
		}
		if frameLen(out) > 0 {
			return out, nil
		}
	}
}

// read fills up to want samples per channel through put, which copies n
// samples from src[*][srcOff:] to output position dstOff.
func (d *Decoder) read(want int, put func(src [][]float32, srcOff, dstOff, n int)) (int, error) {
	got := 0
	for got < want {
		f, err := d.DecodeFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return got, err
		}
		n := min(frameLen(f), want-got)
		put(f, 0, got, n)
		got += n
		if n < frameLen(f) {
			d.pending = make([][]float32, len(f))
			for c := range f {
				d.pending[c] = f[c][n:]
			}
		}
	}
	if got == 0 && want > 0 {
		return 0, io.EOF
	}
	return got, nil
}

// ReadFloat fills buf, one slice per channel, and returns the number of
// samples written to each. Slices beyond the stream's channel count are
// left untouched.
func (d *Decoder) ReadFloat(buf [][]float32) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	return d.read(len(buf[0]), func(src [][]float32, srcOff, dstOff, n int) {
		for c := 0; c < min(len(buf), len(src)); c++ {
			copy(buf[c][dstOff:dstOff+n], src[c][srcOff:srcOff+n])
		}
	})
}

// ReadInterleavedInt16 fills buf with interleaved 16-bit samples for the
// requested channel count and returns the number of samples per channel.
// Mono output mixes every channel; otherwise extra output channels repeat
// the last stream channel.
func (d *Decoder) ReadInterleavedInt16(buf []int16, channels int) (int, error) {
	if channels <= 0 {
		return 0, fmt.Errorf("%w: %d channels", ErrInvalidOptions, channels)
	}
	return d.read(len(buf)/channels, func(src [][]float32, srcOff, dstOff, n int) {
		interleave(buf[dstOff*channels:], src, srcOff, n, channels)
	})
}

func interleave(dst []int16, src [][]float32, off, n, channels int) {
	for i := 0; i < n; i++ {
		if channels == 1 {
			var sum float32
			for _, s := range src {
				sum += s[off+i]
			}
			dst[i] = toInt16(sum / float32(len(src)))
			continue
		}
		for c := 0; c < channels; c++ {
			dst[i*channels+c] = toInt16(src[min(c, len(src)-1)][off+i])
		}
	}
}

func toInt16(v float32) int16 {
	return int16(common.Clamp(common.Round(float64(v)*32768), -32768, 32767))
}

// Length returns the total number of samples per channel, taken from the
// last granule position in the stream.
func (d *Decoder) Length() (int64, error) {
	if d.closed {
		return 0, ErrClosed
	}
	if err := d.buildIndex(); err != nil {
		return 0, err
	}
	if len(d.index) == 0 {
		return 0, nil
	}
	return d.index[len(d.index)-1].granule, nil
}

func (d *Decoder) buildIndex() error {
	if d.indexed {
		return nil
	}
	pr := newPageReader(d.rs)
	if err := pr.seek(d.audioStart); err != nil {
		return err
	}
	var index []pageMark
scan:
	for {
		p, err := pr.next()
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, ErrTruncated):
			break scan
		case errors.Is(err, ErrBadPage), errors.Is(err, ErrBadCRC):
			continue
		case err != nil:
			return err
		}
		if p.serial != d.packets.serial || p.granule < 0 {
			continue
		}
		index = append(index, pageMark{offset: p.offset, end: p.offset + int64(p.size), granule: p.granule, last: p.flags&pageLast != 0})
		if p.flags&pageLast != 0 {
			break
		}
	}
	// the main reader keeps its logical position but loses its buffer
	if err := d.pr.seek(d.pr.off); err != nil {
		return err
	}
	d.index, d.indexed = index, true
	slog.Debug("vorbis: indexed pages", slog.Int("pages", len(index)))
	return nil
}

// SeekStart rewinds to the first audio sample.
func (d *Decoder) SeekStart() error {
	if d.closed {
		return ErrClosed
	}
	if err := d.pr.seek(d.audioStart); err != nil {
		return err
	}
	d.packets.reset()
	d.st.restart()
	d.pending = nil
	return nil
}

// Seek positions the decoder so the next sample returned is sample.
func (d *Decoder) Seek(sample int64) error {
	length, err := d.Length()
	if err != nil {
		return err
	}
	if sample < 0 || sample > length {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrSeekRange, sample, length)
	}
	i := sort.Search(len(d.index), func(i int) bool { return d.index[i].granule > sample }) - 1
	// start two granule pages back so the first block has an overlap partner
	if i < 1 {
		return d.seekForward(sample)
	}
	if err := d.pr.seek(d.index[i-1].end); err != nil {
		return err
	}
	d.packets.reset()
	d.st.restart()
	d.pending = nil

	var frames [][][]float32
	var total int64
	for {
		pk, err := d.packets.next()
		if errors.Is(err, io.EOF) {
			return d.seekForward(sample)
		}
		if err != nil {
			return err
		}
		out, err := d.st.sy.decode(pk.data)
		if errors.Is(err, ErrBadPacket) {
			continue
		}
		if err != nil {
			return err
		}
		if n := frameLen(out); n > 0 {
			frames = append(frames, out)
			total += int64(n)
		}
		if pk.granule < 0 {
			continue
		}
		first := pk.granule - total
		if pk.last || first > sample {
			slog.Debug("vorbis: seek resync failed, decoding from start", slog.Int64("sample", sample))
			return d.seekForward(sample)
		}
		d.st.loc, d.st.haveLoc = pk.granule, true
		drop := sample - first
		if drop >= total {
			return d.skip(drop - total)
		}
		d.pending = joinFrames(frames, drop)
		return nil
	}
}

func (d *Decoder) seekForward(sample int64) error {
	if err := d.SeekStart(); err != nil {
		return err
	}
	return d.skip(sample)
}

// skip discards n samples.
func (d *Decoder) skip(n int64) error {
	for n > 0 {
		f, err := d.DecodeFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		l := int64(frameLen(f))
		if l > n {
			d.pending = make([][]float32, len(f))
			for c := range f {
				d.pending[c] = f[c][n:]
			}
			return nil
		}
		n -= l
	}
	return nil
}

// joinFrames concatenates frames per channel, dropping the first drop
// samples.
func joinFrames(frames [][][]float32, drop int64) [][]float32 {
	ch := len(frames[0])
	out := make([][]float32, ch)
	for c := range out {
		for _, f := range frames {
			out[c] = append(out[c], f[c]...)
		}
		out[c] = out[c][drop:]
	}
	return out
}

// Close releases the decoder. Later calls fail with ErrClosed.
func (d *Decoder) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	d.pending = nil
	d.index = nil
	d.st.sy = nil
	return nil
}

// DecodeAll decodes an entire in-memory stream to interleaved 16-bit
// samples.
func DecodeAll(data []byte, opts *Options) (*Audio, error) {
	d, err := Open(data, opts)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	info := d.Info()
	a := &Audio{Channels: info.Channels, SampleRate: info.SampleRate}
	for {
		f, err := d.DecodeFrame()
		if errors.Is(err, io.EOF) {
			return a, nil
		}
		if err != nil {
			return nil, err
		}
		n := frameLen(f)
		start := len(a.Samples)
		a.Samples = append(a.Samples, make([]int16, n*info.Channels)...)
		interleave(a.Samples[start:], f, 0, n, info.Channels)
	}
}
