package vorbis

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
)

const (
	pageContinued = 0x01
	pageFirst     = 0x02
	pageLast      = 0x04

	pageHeaderLen = 27
	capture       = "OggS"
)

// page is one Ogg page.
type page struct {
	flags   byte
	granule int64
	serial  uint32
	seq     uint32
	lacing  []byte
	body    []byte

	offset int64 // file offset of the capture pattern
	size   int   // header plus body
}

// pageLength returns the total size of the page at the start of b. It
// returns ErrNeedMoreData when b holds only part of the header.
func pageLength(b []byte) (int, error) {
	if len(b) < pageHeaderLen {
		return 0, ErrNeedMoreData
	}
	if string(b[:4]) != capture || b[4] != 0 {
		return 0, ErrBadPage
	}
	nseg := int(b[26])
	if len(b) < pageHeaderLen+nseg {
		return 0, ErrNeedMoreData
	}
	total := pageHeaderLen + nseg
	for _, l := range b[pageHeaderLen : pageHeaderLen+nseg] {
		total += int(l)
	}
	return total, nil
}

// parsePage parses the page at the start of b. It returns ErrNeedMoreData
// when b holds only part of a page.
func parsePage(b []byte) (*page, error) {
	total, err := pageLength(b)
	if err != nil {
		return nil, err
	}
	if len(b) < total {
		return nil, ErrNeedMoreData
	}
	nseg := int(b[26])
	lacing := b[pageHeaderLen : pageHeaderLen+nseg]

	crc := crcUpdate(0, b[:22])
	crc = crcUpdate(crc, []byte{0, 0, 0, 0})
	crc = crcUpdate(crc, b[26:total])
	if crc != binary.LittleEndian.Uint32(b[22:26]) {
		return nil, ErrBadCRC
	}
	return &page{
		flags:   b[5],
		granule: int64(binary.LittleEndian.Uint64(b[6:14])),
		serial:  binary.LittleEndian.Uint32(b[14:18]),
		seq:     binary.LittleEndian.Uint32(b[18:22]),
		lacing:  lacing,
		body:    b[pageHeaderLen+nseg : total],
		size:    total,
	}, nil
}

// lastPacketEnd returns the index of the last segment that ends a packet,
// or -1 when every packet on the page continues onto the next.
func (p *page) lastPacketEnd() int {
	for i := len(p.lacing) - 1; i >= 0; i-- {
		if p.lacing[i] < 255 {
			return i
		}
	}
	return -1
}

// pageReader reads pages from a seekable source, skipping garbage between
// pages.
type pageReader struct {
	rs  io.ReadSeeker
	br  *bufio.Reader
	off int64
}

func newPageReader(rs io.ReadSeeker) *pageReader {
	return &pageReader{rs: rs, br: bufio.NewReader(rs)}
}

func (r *pageReader) seek(off int64) error {
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return err
	}
	r.br.Reset(r.rs)
	r.off = off
	return nil
}

// sync advances to the next capture pattern. It returns io.EOF when none
// remains.
func (r *pageReader) sync() error {
	skipped := 0
	for {
		b, err := r.br.Peek(len(capture))
		if len(b) < len(capture) {
			if err == nil || errors.Is(err, io.EOF) {
				return io.EOF
			}
			return err
		}
		if string(b) == capture {
			break
		}
		_, _ = r.br.Discard(1)
		r.off++
		skipped++
	}
	if skipped > 0 {
		slog.Debug("vorbis: skipped bytes before page", slog.Int("skipped", skipped), slog.Int64("offset", r.off))
	}
	return nil
}

// next reads the next page. A page with a bad checksum is consumed and
// reported as ErrBadCRC.
func (r *pageReader) next() (*page, error) {
	if err := r.sync(); err != nil {
		return nil, err
	}
	start := r.off
	head := make([]byte, pageHeaderLen, pageHeaderLen+255)
	if _, err := io.ReadFull(r.br, head); err != nil {
		return nil, ErrTruncated
	}
	nseg := int(head[26])
	buf := append(head, make([]byte, nseg)...)
	if _, err := io.ReadFull(r.br, buf[pageHeaderLen:]); err != nil {
		return nil, ErrTruncated
	}
	bodyLen := 0
	for _, l := range buf[pageHeaderLen:] {
		bodyLen += int(l)
	}
	buf = append(buf, make([]byte, bodyLen)...)
	if _, err := io.ReadFull(r.br, buf[pageHeaderLen+nseg:]); err != nil {
		return nil, ErrTruncated
	}
	r.off += int64(len(buf))

	p, err := parsePage(buf)
	if err != nil {
		if errors.Is(err, ErrBadPage) {
			// capture pattern inside data: step past it
			_ = r.seek(start + 1)
		}
		return nil, err
	}
	p.offset = start
	return p, nil
}

// packet is one logical Vorbis packet.
type packet struct {
	data []byte

	// granule is the page granule position when this is the last packet
	// completed on its page, otherwise -1.
	granule int64

	// last marks the final packet of the stream.
	last bool
}

// packetReader assembles packets of a single logical stream from pages.
type packetReader struct {
	nextPage func() (*page, error)

	serial     uint32
	haveSerial bool

	cur     *page
	seg     int
	bodyPos int
	lastEnd int

	partial  []byte
	skipping bool // dropping a packet that began before the first page read
	eos      bool
}

// reset forgets any partial packet, for use after seeking.
func (r *packetReader) reset() {
	r.cur = nil
	r.partial = r.partial[:0]
	r.skipping = false
	r.eos = false
}

func (r *packetReader) loadPage() error {
	for {
		p, err := r.nextPage()
		if err != nil {
			return err
		}
		if !r.haveSerial {
			r.serial, r.haveSerial = p.serial, true
		}
		if p.serial != r.serial {
			continue
		}
		if p.flags&pageContinued == 0 && len(r.partial) > 0 {
			slog.Debug("vorbis: dropping unterminated packet", slog.Int("bytes", len(r.partial)))
			r.partial = r.partial[:0]
		}
		if p.flags&pageContinued != 0 && len(r.partial) == 0 {
			r.skipping = true
		}
		r.cur, r.seg, r.bodyPos, r.lastEnd = p, 0, 0, p.lastPacketEnd()
		return nil
	}
}

// next returns the next complete packet, io.EOF after the last one.
func (r *packetReader) next() (packet, error) {
	for {
		if r.cur == nil || r.seg >= len(r.cur.lacing) {
			if r.cur != nil && r.cur.flags&pageLast != 0 {
				r.eos = true
			}
			if r.eos {
				return packet{}, io.EOF
			}
			if err := r.loadPage(); err != nil {
				return packet{}, err
			}
			continue
		}
		p := r.cur
		for r.seg < len(p.lacing) {
			l := int(p.lacing[r.seg])
			seg := p.body[r.bodyPos : r.bodyPos+l]
			r.bodyPos += l
			idx := r.seg
			r.seg++
			if !r.skipping {
				r.partial = append(r.partial, seg...)
			}
			if l == 255 {
				continue
			}
			if r.skipping {
				r.skipping = false
				continue
			}
			pk := packet{data: append([]byte(nil), r.partial...), granule: -1}
			r.partial = r.partial[:0]
			if idx == r.lastEnd {
				pk.granule = p.granule
				pk.last = p.flags&pageLast != 0
			}
			return pk, nil
		}
	}
}
