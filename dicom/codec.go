// Package dicom exposes the JPEG baseline codec to go-dicom as the codec
// for the JPEG Baseline (Process 1) transfer syntax.
package dicom

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	"github.com/cocosip/go-dicom/pkg/imaging/codec"
	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	mcodec "github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/jpeg"
	"github.com/cocosip/go-media-codec/stream"
)

var _ codec.Codec = (*BaselineCodec)(nil)

// BaselineCodec implements the go-dicom codec.Codec interface for JPEG
// Baseline 8-bit.
type BaselineCodec struct {
	transferSyntax *transfer.Syntax
	quality        int
}

// NewBaselineCodec creates a codec encoding at the given quality. Zero
// selects the default quality.
func NewBaselineCodec(quality int) *BaselineCodec {
	if quality == 0 {
		quality = jpeg.DefaultQuality
	}
	return &BaselineCodec{
		transferSyntax: transfer.JPEGBaseline8Bit,
		quality:        quality,
	}
}

// Name returns the codec name
func (c *BaselineCodec) Name() string {
	return fmt.Sprintf("JPEG Baseline (Quality %d)", c.quality)
}

// TransferSyntax returns the transfer syntax this codec handles
func (c *BaselineCodec) TransferSyntax() *transfer.Syntax {
	return c.transferSyntax
}

// GetDefaultParameters returns the default codec parameters
func (c *BaselineCodec) GetDefaultParameters() codec.Parameters {
	return NewBaselineParameters().WithQuality(c.quality)
}

func (c *BaselineCodec) qualityFrom(parameters codec.Parameters) int {
	if parameters == nil {
		return c.quality
	}
	p, ok := parameters.(*BaselineParameters)
	if !ok {
		p = NewBaselineParameters().WithQuality(c.quality)
		if q, ok := parameters.GetParameter("quality").(int); ok {
			p.Quality = q
		}
	}
	_ = p.Validate()
	return p.Quality
}

// checkFrameInfo returns the frame info when it describes data this codec
// can carry.
func checkFrameInfo(px imagetypes.PixelData) (*imagetypes.FrameInfo, error) {
	info := px.GetFrameInfo()
	if info == nil {
		return nil, ErrNoFrameInfo
	}
	if info.BitsAllocated != 8 || info.BitsStored == 0 || info.BitsStored > 8 {
		return nil, fmt.Errorf("%w: bits allocated %d, stored %d", ErrBitDepth, info.BitsAllocated, info.BitsStored)
	}
	if info.SamplesPerPixel != 1 && info.SamplesPerPixel != 3 {
		return nil, fmt.Errorf("%w: %d", ErrSamplesPerPixel, info.SamplesPerPixel)
	}
	return info, nil
}

// Encode compresses every frame of oldPixelData into newPixelData.
func (c *BaselineCodec) Encode(oldPixelData imagetypes.PixelData, newPixelData imagetypes.PixelData, parameters codec.Parameters) error {
	if oldPixelData == nil || newPixelData == nil {
		return ErrNilPixelData
	}
	info, err := checkFrameInfo(oldPixelData)
	if err != nil {
		return err
	}
	quality := c.qualityFrom(parameters)
	w, h, spp := int(info.Width), int(info.Height), int(info.SamplesPerPixel)

	for i := 0; i < oldPixelData.FrameCount(); i++ {
		frame, err := oldPixelData.GetFrame(i)
		if err != nil {
			return fmt.Errorf("failed to get frame %d: %w", i, err)
		}
		if len(frame) == 0 {
			return fmt.Errorf("frame %d: %w", i, ErrEmptyFrame)
		}
		if len(frame) != w*h*spp {
			return fmt.Errorf("frame %d: %w: %d bytes for %dx%dx%d", i, ErrFrameSize, len(frame), w, h, spp)
		}
		pix := frame
		if spp == 3 && info.PlanarConfiguration == 1 {
			pix = interleave(pix, w*h)
		}
		if info.PixelRepresentation == 1 {
			pix = flipSign(pix)
		}
		var buf bytes.Buffer
		img := &mcodec.Image{Pix: pix, Width: w, Height: h, Channels: spp}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{BaseOptions: mcodec.BaseOptions{Quality: quality}}); err != nil {
			return fmt.Errorf("JPEG Baseline encode failed for frame %d: %w", i, err)
		}
		slog.Debug("dicom: encoded frame",
			slog.Int("frame", i),
			slog.Int("quality", quality),
			slog.Int("raw", len(frame)),
			slog.Int("compressed", buf.Len()))
		if err := newPixelData.AddFrame(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to add encoded frame %d: %w", i, err)
		}
	}
	return nil
}

// Decode decompresses every frame of oldPixelData into newPixelData.
func (c *BaselineCodec) Decode(oldPixelData imagetypes.PixelData, newPixelData imagetypes.PixelData, parameters codec.Parameters) error {
	if oldPixelData == nil || newPixelData == nil {
		return ErrNilPixelData
	}
	info, err := checkFrameInfo(oldPixelData)
	if err != nil {
		return err
	}
	w, h, spp := int(info.Width), int(info.Height), int(info.SamplesPerPixel)

	for i := 0; i < oldPixelData.FrameCount(); i++ {
		frame, err := oldPixelData.GetFrame(i)
		if err != nil {
			return fmt.Errorf("failed to get frame %d: %w", i, err)
		}
		if len(frame) == 0 {
			return fmt.Errorf("frame %d: %w", i, ErrEmptyFrame)
		}
		img, err := jpeg.Decode(stream.FromBytes(frame), &mcodec.DecodeOptions{Channels: spp})
		if err != nil {
			return fmt.Errorf("JPEG Baseline decode failed for frame %d: %w", i, err)
		}
		if img.Width != w || img.Height != h {
			return fmt.Errorf("frame %d: %w: decoded %dx%d, expected %dx%d",
				i, ErrDimensionMismatch, img.Width, img.Height, w, h)
		}
		pix := img.Pix
		if info.PixelRepresentation == 1 {
			pix = flipSign(pix)
		}
		if spp == 3 && info.PlanarConfiguration == 1 {
			pix = deinterleave(pix, w*h)
		}
		slog.Debug("dicom: decoded frame", slog.Int("frame", i), slog.Int("bytes", len(pix)))
		if err := newPixelData.AddFrame(pix); err != nil {
			return fmt.Errorf("failed to add decoded frame %d: %w", i, err)
		}
	}
	return nil
}

// flipSign moves two's complement samples into the unsigned range JPEG
// expects, and back.
func flipSign(pix []byte) []byte {
	out := make([]byte, len(pix))
	for i, v := range pix {
		out[i] = v ^ 0x80
	}
	return out
}

// interleave turns RRR...GGG...BBB planes into RGBRGB.
func interleave(planar []byte, n int) []byte {
	out := make([]byte, 3*n)
	for i := 0; i < n; i++ {
		out[3*i] = planar[i]
		out[3*i+1] = planar[n+i]
		out[3*i+2] = planar[2*n+i]
	}
	return out
}

func deinterleave(pix []byte, n int) []byte {
	out := make([]byte, 3*n)
	for i := 0; i < n; i++ {
		out[i] = pix[3*i]
		out[n+i] = pix[3*i+1]
		out[2*n+i] = pix[3*i+2]
	}
	return out
}

// Register registers the codec with the go-dicom global registry
func Register() {
	registry := codec.GetGlobalRegistry()
	registry.RegisterCodec(transfer.JPEGBaseline8Bit, NewBaselineCodec(0))
}

func init() {
	Register()
}
