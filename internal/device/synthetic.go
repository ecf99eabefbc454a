package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

const (
	patternWidth  = 64
	patternHeight = 48
)

var errStreamClosed = errors.New("stream closed")

// Synthetic is a Driver without hardware. Each snapshot renders a small
// moving test pattern, scales it to the requested size and encodes it as JPEG.
type Synthetic struct {
	Label string
}

// NewSynthetic creates a synthetic driver.
func NewSynthetic() *Synthetic {
	return &Synthetic{Label: "synthetic"}
}

func (s *Synthetic) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width, height := c.Width, c.Height
	if width <= 0 {
		width = constants.DefaultFrameWidth
	}
	if height <= 0 {
		height = constants.DefaultFrameHeight
	}
	label := s.Label
	if c.FacingMode != "" {
		label = fmt.Sprintf("%s (%s)", label, c.FacingMode)
	}
	return &syntheticStream{info: Info{Label: label, Width: width, Height: height}}, nil
}

type syntheticStream struct {
	info Info

	mu     sync.Mutex
	frame  int
	closed bool
}

func (s *syntheticStream) Info() Info {
	return s.info
}

func (s *syntheticStream) Snapshot() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, "", errStreamClosed
	}
	s.frame++

	src := renderPattern(s.frame)
	dst := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("encoding frame: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func (s *syntheticStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// renderPattern draws a diagonal gradient with an oval "face" that drifts
// horizontally with the frame number.
func renderPattern(frame int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, patternWidth, patternHeight))
	cx := float64(patternWidth/2 + (frame%9 - 4))
	cy := float64(patternHeight / 2)
	for y := range patternHeight {
		for x := range patternWidth {
			dx := (float64(x) - cx) / 14
			dy := (float64(y) - cy) / 18
			if dx*dx+dy*dy <= 1 {
				img.SetRGBA(x, y, color.RGBA{R: 224, G: 188, B: 160, A: 255})
				continue
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / patternWidth),
				G: uint8(y * 255 / patternHeight),
				B: uint8((frame * 16) % 256),
				A: 255,
			})
		}
	}
	return img
}
