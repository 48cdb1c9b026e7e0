package dicom

import (
	"github.com/cocosip/go-dicom/pkg/imaging/codec"

	"github.com/cocosip/go-media-codec/jpeg"
)

// Ensure BaselineParameters implements codec.Parameters
var _ codec.Parameters = (*BaselineParameters)(nil)

// BaselineParameters contains parameters for JPEG Baseline compression
type BaselineParameters struct {
	// Quality controls the JPEG compression quality (1-100)
	Quality int

	// internal storage for compatibility with generic parameter interface
	params map[string]interface{}
}

// NewBaselineParameters creates parameters with the default quality
func NewBaselineParameters() *BaselineParameters {
	return &BaselineParameters{
		Quality: jpeg.DefaultQuality,
		params:  make(map[string]interface{}),
	}
}

// GetParameter retrieves a parameter by name (implements codec.Parameters)
func (p *BaselineParameters) GetParameter(name string) interface{} {
	switch name {
	case "quality":
		return p.Quality
	default:
		return p.params[name]
	}
}

// SetParameter sets a parameter value (implements codec.Parameters)
func (p *BaselineParameters) SetParameter(name string, value interface{}) {
	switch name {
	case "quality":
		if v, ok := value.(int); ok {
			p.Quality = v
		}
	default:
		if p.params == nil {
			p.params = make(map[string]interface{})
		}
		p.params[name] = value
	}
}

// Validate resets an out of range quality to the default
func (p *BaselineParameters) Validate() error {
	if p.Quality < 1 || p.Quality > 100 {
		p.Quality = jpeg.DefaultQuality
	}
	return nil
}

// WithQuality sets the quality and returns the parameters for chaining
func (p *BaselineParameters) WithQuality(quality int) *BaselineParameters {
	p.Quality = quality
	return p
}
