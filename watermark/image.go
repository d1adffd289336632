// Package watermark composites the brand logo and an optional per-tenant
// logo onto uploaded media. Every entry point is best-effort: whatever goes
// wrong, the caller gets the original media back, never an error.
package watermark

import (
	"bytes"
	"context"
	_ "embed"
	"image"

	"github.com/disintegration/imaging"

	"mediaproxy/logger"
	"mediaproxy/logo"
)

//go:embed assets/brand_logo.png
var brandLogo []byte

// Fixed compositing policy: both logos are rendered at logoSize pixels with
// logoPad padding from their corner, brand top-right, tenant top-left.
const (
	logoSize    = 50
	logoPad     = 20
	logoOpacity = 0.8
)

// Pipeline applies watermarks. Logos resolves tenant logos per job; the
// brand logo is bundled and shared by all jobs.
type Pipeline struct {
	Logos *logo.Resolver
}

// Image composites the watermarks over src and re-encodes in the source
// container where the container is one we can write. Any failure returns
// src unchanged.
func (p *Pipeline) Image(ctx context.Context, src []byte, org string) (out []byte) {
	out = src
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("image watermark panicked, keeping original: %v", r)
			out = src
		}
	}()

	base, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		logger.Warnf("image watermark: decode failed, keeping original: %v", err)
		return src
	}

	canvas := imaging.Clone(base)
	w := canvas.Bounds().Dx()

	if brand := p.roundLogo(brandLogo); brand != nil {
		canvas = imaging.Overlay(canvas, brand, brandAnchor(w, brand), 1.0)
	}
	if tenant := p.tenantLogo(ctx, org); tenant != nil {
		canvas = imaging.Overlay(canvas, tenant, image.Pt(logoPad, logoPad), 1.0)
	}

	var buf bytes.Buffer
	if err := encodeAs(&buf, canvas, format); err != nil {
		logger.Warnf("image watermark: encode as %s failed, keeping original: %v", format, err)
		return src
	}
	return buf.Bytes()
}

// brandAnchor pins an overlay to the top-right corner at the fixed padding.
// The raster's own width is used: a logo that degraded past roundification
// keeps its original bounds and must still land inside the canvas edge.
func brandAnchor(canvasWidth int, ov image.Image) image.Point {
	return image.Pt(canvasWidth-ov.Bounds().Dx()-logoPad, logoPad)
}

// roundLogo prepares one overlay raster, or nil when the asset is unusable.
func (p *Pipeline) roundLogo(asset []byte) image.Image {
	rounded := Roundify(asset, logoSize, logoOpacity)
	img, err := imaging.Decode(bytes.NewReader(rounded))
	if err != nil {
		logger.Warnf("logo raster unusable: %v", err)
		return nil
	}
	return img
}

// tenantLogo resolves and prepares the org's logo, nil when absent or on
// any failure. Logos can change between requests, so there is no caching
// beyond this call.
func (p *Pipeline) tenantLogo(ctx context.Context, org string) image.Image {
	if org == "" || p.Logos == nil {
		return nil
	}
	asset, err := p.Logos.Resolve(ctx, logo.OrgScope(org))
	if err != nil {
		logger.Warnf("tenant logo lookup for %s failed: %v", org, err)
		return nil
	}
	if asset == nil {
		return nil
	}
	return p.roundLogo(asset.Data)
}

func encodeAs(buf *bytes.Buffer, img image.Image, format string) error {
	var f imaging.Format
	switch format {
	case "jpeg":
		f = imaging.JPEG
	case "gif":
		f = imaging.GIF
	case "bmp":
		f = imaging.BMP
	case "tiff":
		f = imaging.TIFF
	default:
		f = imaging.PNG
	}
	return imaging.Encode(buf, img, f, imaging.JPEGQuality(90))
}
