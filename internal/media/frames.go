package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os/exec"
	"strings"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"vidprint/internal/errs"
)

// FrameSource decodes selected frames from a video file in a single ffmpeg
// pass, scaled to size x size RGB.
type FrameSource struct {
	size int
}

func NewFrameSource(size int) *FrameSource {
	return &FrameSource{size: size}
}

// FramesAt decodes the frames at the given zero-based indices. Indices must
// be sorted ascending; the returned slice follows the same order. Fewer
// frames than requested may come back when the container overstates its
// frame count.
func (s *FrameSource) FramesAt(ctx context.Context, path string, indices []int) ([]image.Image, error) {
	if len(indices) == 0 {
		return nil, nil
	}

	buf := bytes.NewBuffer(nil)
	stream := ffmpeg_go.Input(path).
		Filter("select", ffmpeg_go.Args{selectExpr(indices)}).
		Filter("scale", ffmpeg_go.Args{fmt.Sprintf("%d:%d", s.size, s.size)}).
		Output("pipe:", ffmpeg_go.KwArgs{
			"vsync":   "0",
			"format":  "rawvideo",
			"pix_fmt": "rgb24",
		}).
		WithOutput(buf).
		Silent(true)

	if err := runCmd(ctx, stream.Compile()); err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.KindTimeout, fmt.Sprintf("decode frames from %s", path), ctx.Err())
		}
		return nil, errs.Wrap(errs.KindDecode, fmt.Sprintf("decode frames from %s", path), err)
	}

	frames, err := parseRGBFrames(buf.Bytes(), s.size)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errs.New(errs.KindDecode, fmt.Sprintf("no frames decoded from %s", path))
	}
	return frames, nil
}

// FrameAt decodes a single frame.
func (s *FrameSource) FrameAt(ctx context.Context, path string, index int) (image.Image, error) {
	frames, err := s.FramesAt(ctx, path, []int{index})
	if err != nil {
		return nil, err
	}
	return frames[0], nil
}

// runCmd starts cmd and kills it when ctx is canceled. The Compile output of
// ffmpeg-go is not context-aware on its own.
func runCmd(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// selectExpr builds the select filter expression matching the wanted frame
// numbers, e.g. "eq(n\,0)+eq(n\,15)".
func selectExpr(indices []int) string {
	terms := make([]string, len(indices))
	for i, idx := range indices {
		terms[i] = fmt.Sprintf(`eq(n\,%d)`, idx)
	}
	return strings.Join(terms, "+")
}

// parseRGBFrames splits a raw rgb24 byte stream into images of size x size.
// A trailing partial frame is dropped.
func parseRGBFrames(data []byte, size int) ([]image.Image, error) {
	if size <= 0 {
		return nil, errs.New(errs.KindDecode, "frame size must be positive")
	}
	frameLen := size * size * 3
	n := len(data) / frameLen

	frames := make([]image.Image, 0, n)
	for f := 0; f < n; f++ {
		chunk := data[f*frameLen : (f+1)*frameLen]
		img := image.NewRGBA(image.Rect(0, 0, size, size))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				off := (y*size + x) * 3
				img.SetRGBA(x, y, color.RGBA{
					R: chunk[off],
					G: chunk[off+1],
					B: chunk[off+2],
					A: 255,
				})
			}
		}
		frames = append(frames, img)
	}
	return frames, nil
}
