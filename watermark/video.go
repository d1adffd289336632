package watermark

import (
	"context"
	"os"
	"path/filepath"

	"mediaproxy/config"
	"mediaproxy/encoder"
	"mediaproxy/logger"
	"mediaproxy/logo"
	"mediaproxy/utils"
)

// Video overlays the watermarks onto a video by materializing the source and
// logo rasters to uniquely named scratch files and running the external
// encoder over them. srcExt is the source container extension (".mp4").
//
// Every scratch file is removed on every exit path. Encoder failure, a
// missing encoder binary, or a wall-clock timeout all degrade to returning
// src unchanged.
func (p *Pipeline) Video(ctx context.Context, src []byte, srcExt, org string) (out []byte) {
	out = src
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("video watermark panicked, keeping original: %v", r)
			out = src
		}
	}()

	if !encoder.Available() {
		logger.Warn("video watermark skipped: encoder not available")
		return src
	}
	if srcExt == "" {
		srcExt = ".mp4"
	}

	scratchDir := config.GetScratchDir()
	var scratch []string
	defer func() {
		for _, f := range scratch {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				logger.Errorf("failed to remove scratch file %s: %v", f, err)
			}
		}
	}()
	newScratch := func(prefix, ext string) string {
		f := filepath.Join(scratchDir, utils.ScratchName(prefix, ext))
		scratch = append(scratch, f)
		return f
	}

	basePath := newScratch("wm-src", srcExt)
	if err := os.WriteFile(basePath, src, 0644); err != nil {
		logger.Warnf("video watermark: materialize source failed, keeping original: %v", err)
		return src
	}

	brandPath := newScratch("wm-brand", ".png")
	if err := os.WriteFile(brandPath, Roundify(brandLogo, logoSize, logoOpacity), 0644); err != nil {
		logger.Warnf("video watermark: materialize brand logo failed, keeping original: %v", err)
		return src
	}
	overlays := []encoder.Overlay{{Path: brandPath, Anchor: encoder.TopRight}}

	if org != "" && p.Logos != nil {
		asset, err := p.Logos.Resolve(ctx, logo.OrgScope(org))
		if err != nil {
			logger.Warnf("tenant logo lookup for %s failed: %v", org, err)
		} else if asset != nil {
			tenantPath := newScratch("wm-tenant", ".png")
			if err := os.WriteFile(tenantPath, Roundify(asset.Data, logoSize, logoOpacity), 0644); err != nil {
				logger.Warnf("video watermark: materialize tenant logo failed: %v", err)
			} else {
				overlays = append(overlays, encoder.Overlay{Path: tenantPath, Anchor: encoder.TopLeft})
			}
		}
	}

	outPath := newScratch("wm-out", srcExt)

	encCtx, cancel := context.WithTimeout(ctx, config.GetEncodeTimeout())
	defer cancel()
	if err := encoder.ComposeOverlays(encCtx, basePath, overlays, outPath); err != nil {
		logger.Warnf("video watermark: encoder failed, keeping original: %v", err)
		return src
	}

	result, err := os.ReadFile(outPath)
	if err != nil {
		logger.Warnf("video watermark: read output failed, keeping original: %v", err)
		return src
	}
	return result
}
