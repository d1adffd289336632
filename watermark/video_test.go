package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"

	"mediaproxy/encoder"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func listScratch(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// A failing encoder must return the original bytes and leave the scratch
// directory exactly as it was.
func TestVideoEncoderFailureCleansScratch(t *testing.T) {
	scratch := t.TempDir()
	t.Setenv("MEDIAPROXY_SCRATCH_DIR", scratch)

	old := encoder.Command
	encoder.Command = "false" // exists in PATH, always exits nonzero
	defer func() { encoder.Command = old }()

	p, _ := newPipeline(t)
	src := []byte("pretend this is an mp4")

	before := listScratch(t, scratch)
	out := p.Video(t.Context(), src, ".mp4", "acme")
	after := listScratch(t, scratch)

	if !bytes.Equal(out, src) {
		t.Error("encoder failure did not return the original input")
	}
	if len(after) != len(before) {
		t.Errorf("scratch files leaked: before=%v after=%v", before, after)
	}
}

func TestVideoMissingEncoderDegrades(t *testing.T) {
	scratch := t.TempDir()
	t.Setenv("MEDIAPROXY_SCRATCH_DIR", scratch)

	old := encoder.Command
	encoder.Command = "no-such-encoder-binary"
	defer func() { encoder.Command = old }()

	p, _ := newPipeline(t)
	src := []byte("video bytes")
	out := p.Video(t.Context(), src, ".mp4", "")
	if !bytes.Equal(out, src) {
		t.Error("missing encoder did not degrade to the original input")
	}
	if names := listScratch(t, scratch); len(names) != 0 {
		t.Errorf("scratch files written before the availability check: %v", names)
	}
}
