package watermark

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"mediaproxy/logo"
	"mediaproxy/store"
)

func newPipeline(t *testing.T) (*Pipeline, store.Store) {
	t.Helper()
	st, err := store.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return &Pipeline{Logos: &logo.Resolver{Store: st}}, st
}

func TestImageBrandOnly(t *testing.T) {
	p, _ := newPipeline(t)
	src := pngBytes(t, 400, 300, color.NRGBA{G: 180, A: 255})

	// Tenant acme has no logo under any extension; the job still succeeds.
	out := p.Image(t.Context(), src, "acme")
	if bytes.Equal(out, src) {
		t.Fatal("output identical to source, watermark was not applied")
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if format != "png" {
		t.Errorf("output format = %s, want png (source container)", format)
	}
	b := img.Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("output is %dx%d, want source dimensions 400x300", b.Dx(), b.Dy())
	}

	// Top-right corner region carries the brand logo, top-left stays source.
	tl := img.At(25, 45)
	src0 := color.NRGBA{G: 180, A: 255}
	r0, g0, b0, _ := tl.RGBA()
	if uint8(r0>>8) != src0.R || uint8(g0>>8) != src0.G || uint8(b0>>8) != src0.B {
		t.Error("top-left was painted although no tenant logo exists")
	}
}

func TestImageWithTenantLogo(t *testing.T) {
	p, st := newPipeline(t)
	tenantLogo := pngBytes(t, 80, 80, color.NRGBA{B: 220, A: 255})
	wc, err := st.OpenWrite(t.Context(), logo.OrgScope("acme")+"/logo.png")
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	wc.Write(tenantLogo)
	wc.Close()

	src := pngBytes(t, 400, 300, color.NRGBA{G: 180, A: 255})
	out := p.Image(t.Context(), src, "acme")
	if bytes.Equal(out, src) {
		t.Fatal("output identical to source")
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	// Center of the tenant logo placement (padding 20 + size 50/2).
	r0, g0, _, _ := img.At(45, 45).RGBA()
	if uint8(g0>>8) == 180 && uint8(r0>>8) == 0 {
		t.Error("top-left pixel unchanged, tenant logo not composited")
	}
}

func TestBrandAnchorUsesOverlayWidth(t *testing.T) {
	standard := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	if got := brandAnchor(400, standard); got != image.Pt(330, 20) {
		t.Errorf("anchor for 50px overlay = %v, want (330,20)", got)
	}
	// A logo that kept its original bounds still lands flush with the
	// padded right edge instead of hanging past the canvas.
	oversized := image.NewNRGBA(image.Rect(0, 0, 200, 120))
	if got := brandAnchor(400, oversized); got != image.Pt(180, 20) {
		t.Errorf("anchor for 200px overlay = %v, want (180,20)", got)
	}
}

func TestImageCorruptInputReturnsOriginal(t *testing.T) {
	p, _ := newPipeline(t)
	src := []byte{0xde, 0xad, 0xbe, 0xef}
	out := p.Image(t.Context(), src, "acme")
	if !bytes.Equal(out, src) {
		t.Fatal("corrupt input was not returned unchanged")
	}
}

func TestImageJPEGKeepsContainer(t *testing.T) {
	p, _ := newPipeline(t)
	src := jpegBytes(t, 320, 240)
	out := p.Image(t.Context(), src, "")
	_, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("output format = %s, want jpeg", format)
	}
}
