package codec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConvertChannels(t *testing.T) {
	rgb := []byte{255, 0, 0, 0, 255, 0}
	tests := []struct {
		name     string
		in       []byte
		from, to int
		want     []byte
	}{
		{"grey to rgba", []byte{10, 20}, 1, 4, []byte{10, 10, 10, 255, 20, 20, 20, 255}},
		{"grey alpha to rgb", []byte{10, 7, 20, 8}, 2, 3, []byte{10, 10, 10, 20, 20, 20}},
		{"rgb to grey", rgb, 3, 1, []byte{76, 149}},
		{"rgb to grey alpha", rgb, 3, 2, []byte{76, 255, 149, 255}},
		{"rgba to rgb", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 4, 3, []byte{1, 2, 3, 5, 6, 7}},
		{"identity", rgb, 3, 3, rgb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertChannels(tt.in, tt.from, tt.to, len(tt.in)/tt.from, 1)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestFinishFlips(t *testing.T) {
	img := Finish([]byte{1, 2, 3, 4, 5, 6}, 2, 3, 1, &DecodeOptions{FlipVertically: true, Channels: 2})
	want := []byte{5, 255, 6, 255, 3, 255, 4, 255, 1, 255, 2, 255}
	if diff := cmp.Diff(want, img.Pix); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if img.Channels != 2 {
		t.Errorf("Channels = %d, want 2", img.Channels)
	}
}

func TestCheckDimensions(t *testing.T) {
	if err := CheckDimensions(0, 10, 3); !errors.Is(err, ErrMalformed) {
		t.Errorf("zero width: %v", err)
	}
	if err := CheckDimensions(1<<25, 1, 1); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("huge width: %v", err)
	}
	if err := CheckDimensions(640, 480, 4); err != nil {
		t.Errorf("640x480: %v", err)
	}
}
