// Package encoder drives the external video encoder. Only the overlay
// composition the watermark pipeline needs is exposed; argument and filter
// graph construction stays behind this boundary so the binary is swappable.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"mediaproxy/logger"
)

// Command is the encoder binary. Overridable for hosts with a nonstandard
// install path, and by tests that need a deterministic failure.
var Command = "ffmpeg"

// Anchor names the corner an overlay is pinned to, at a fixed padding.
type Anchor int

const (
	TopLeft Anchor = iota
	TopRight
)

// Overlay is one logo raster to composite onto the base video.
type Overlay struct {
	Path   string
	Anchor Anchor
}

const overlayPad = 20

// Available reports whether the encoder binary can be found in PATH, the
// same gate the image encoders use before registering.
func Available() bool {
	if _, err := exec.LookPath(Command); err != nil {
		logger.Warnf("encoder '%s' not found in PATH", Command)
		return false
	}
	return true
}

// ComposeOverlays renders base with each overlay chained in order and writes
// the result to out. The audio stream is copied, never re-encoded. The
// context bounds the subprocess wall-clock.
func ComposeOverlays(ctx context.Context, base string, overlays []Overlay, out string) error {
	if len(overlays) == 0 {
		return fmt.Errorf("no overlays given")
	}
	args := buildArgs(base, overlays, out)
	logger.Debugf("running %s %s", Command, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", Command, err, lastLine(&stderr))
	}
	return nil
}

// buildArgs constructs the full argument list including the filter graph.
// Each overlay consumes the previous stage's video: the first reads [0:v],
// the last writes [vout].
func buildArgs(base string, overlays []Overlay, out string) []string {
	args := []string{"-y", "-i", base}
	for _, ov := range overlays {
		args = append(args, "-i", ov.Path)
	}

	var graph strings.Builder
	in := "[0:v]"
	for i, ov := range overlays {
		label := fmt.Sprintf("[v%d]", i+1)
		if i == len(overlays)-1 {
			label = "[vout]"
		}
		if i > 0 {
			graph.WriteString(";")
		}
		fmt.Fprintf(&graph, "%s[%d:v]overlay=%s%s", in, i+1, position(ov.Anchor), label)
		in = label
	}

	return append(args,
		"-filter_complex", graph.String(),
		"-map", "[vout]",
		"-map", "0:a?",
		"-c:a", "copy",
		out,
	)
}

func position(a Anchor) string {
	switch a {
	case TopRight:
		return fmt.Sprintf("main_w-overlay_w-%d:%d", overlayPad, overlayPad)
	default:
		return fmt.Sprintf("%d:%d", overlayPad, overlayPad)
	}
}

func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
