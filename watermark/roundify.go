package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"

	"mediaproxy/logger"
)

// circleMask is an alpha mask covering a centered circle with radius half
// the square's side.
type circleMask struct {
	size int
}

func (m *circleMask) ColorModel() color.Model { return color.AlphaModel }
func (m *circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, m.size, m.size) }

func (m *circleMask) At(x, y int) color.Color {
	r := float64(m.size) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// Roundify produces a size×size PNG of the source image cropped to cover the
// square, masked to a full circle and scaled to the given opacity. This is a
// cosmetic best-effort step: any decode or processing failure returns the
// original bytes unchanged.
func Roundify(src []byte, size int, opacity float64) []byte {
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		logger.Warnf("roundify: decode failed, keeping original logo: %v", err)
		return src
	}

	fitted := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.DrawMask(out, out.Bounds(), fitted, image.Point{}, &circleMask{size: size}, image.Point{}, draw.Over)

	if opacity < 0 {
		opacity = 0
	}
	if opacity < 1 {
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = uint8(float64(out.Pix[i]) * opacity)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		logger.Warnf("roundify: encode failed, keeping original logo: %v", err)
		return src
	}
	return buf.Bytes()
}
