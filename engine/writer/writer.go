// Package writer encodes rendered frame stacks and run metadata to the filesystem. Files are
// named {channel}_{frame:05d}.{ext}.
package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"
)

// ValueRange is the float interval mapped onto the full integer range of a scaled image.
type ValueRange struct {
	Min float32 `json:"min"`
	Max float32 `json:"max"`
}

// Result lists the files written for one channel.
type Result struct {
	Channel renderer.Channel
	Paths   []string

	// Range is set for channels whose values were rescaled to fit the image format (depth).
	Range *ValueRange
}

type writer struct {
	palette color.Palette
	perm    os.FileMode
	logger  *slog.Logger
}

// Writer encodes output arrays and metadata records.
type Writer interface {
	// WriteChannel encodes one channel's per-frame arrays into dir. rgba becomes 8-bit PNG,
	// segmentation a palette PNG, depth a 16-bit TIFF scaled over the range of all frames, and
	// other float channels 16-bit PNG.
	//
	// Parameters:
	//   - ctx: cancels the remaining frames
	//   - channel: the channel name
	//   - frames: the frame index of each array
	//   - arrays: the arrays to encode
	//   - dir: the output directory, created if missing
	//
	// Returns:
	//   - Result: the written files
	//   - error: error if an array cannot be encoded or written
	WriteChannel(ctx context.Context, channel renderer.Channel, frames []int, arrays []*renderer.Array, dir string) (Result, error)

	// WriteStack writes every channel of a frame stack concurrently.
	//
	// Parameters:
	//   - ctx: cancels the remaining work
	//   - stack: the frame stack
	//   - dir: the output directory
	//
	// Returns:
	//   - map[renderer.Channel]Result: the written files per channel
	//   - error: the first channel failure
	WriteStack(ctx context.Context, stack *renderer.FrameStack, dir string) (map[renderer.Channel]Result, error)

	// WriteMetadata writes a record as indented JSON.
	//
	// Parameters:
	//   - record: the value to serialize
	//   - path: the destination file; parent directories are created
	//
	// Returns:
	//   - error: error if the record cannot be serialized or written
	WriteMetadata(record any, path string) error
}

var _ Writer = &writer{}

// NewWriter creates an artifact writer.
//
// Parameters:
//   - options: functional options to configure the writer
//
// Returns:
//   - Writer: the new writer
func NewWriter(options ...WriterBuilderOption) Writer {
	w := &writer{
		palette: SegmentationPalette(),
		perm:    0o755,
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// FileName returns the artifact name of one frame of a channel.
//
// Parameters:
//   - channel: the channel
//   - frame: the frame index
//   - ext: the file extension without the dot
//
// Returns:
//   - string: the file name
func FileName(channel renderer.Channel, frame int, ext string) string {
	return fmt.Sprintf("%s_%05d.%s", channel, frame, ext)
}

func (w *writer) WriteChannel(ctx context.Context, channel renderer.Channel, frames []int, arrays []*renderer.Array, dir string) (Result, error) {
	res := Result{Channel: channel}
	if len(frames) != len(arrays) {
		return res, fmt.Errorf("write %s: %d arrays for %d frames", channel, len(arrays), len(frames))
	}
	if err := os.MkdirAll(dir, w.perm); err != nil {
		return res, fmt.Errorf("write %s: %w", channel, err)
	}

	var encode func(a *renderer.Array) (image.Image, error)
	ext := "png"
	switch {
	case channel == renderer.ChannelRGBA:
		encode = encodeRGBA
	case channel.IsLabel():
		encode = w.encodeSegmentation
	case channel == renderer.ChannelDepth:
		ext = "tiff"
		r := valueRange(arrays)
		res.Range = &r
		encode = func(a *renderer.Array) (image.Image, error) { return encodeScaled(a, r) }
	case channel == renderer.ChannelNormal:
		encode = func(a *renderer.Array) (image.Image, error) { return encodeUnit(a, -1, 1) }
	default:
		encode = func(a *renderer.Array) (image.Image, error) { return encodeUnit(a, 0, 1) }
	}

	for i, a := range arrays {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		img, err := encode(a)
		if err != nil {
			return res, fmt.Errorf("write %s frame %d: %w", channel, frames[i], err)
		}
		path := filepath.Join(dir, FileName(channel, frames[i], ext))
		if err := writeImage(path, img, ext); err != nil {
			return res, fmt.Errorf("write %s frame %d: %w", channel, frames[i], err)
		}
		res.Paths = append(res.Paths, path)
	}

	attrs := []any{slog.String("channel", string(channel)), slog.Int("files", len(res.Paths))}
	if res.Range != nil {
		attrs = append(attrs, slog.Any("range", *res.Range))
	}
	w.logger.Info("channel written", attrs...)
	return res, nil
}

func (w *writer) WriteStack(ctx context.Context, stack *renderer.FrameStack, dir string) (map[renderer.Channel]Result, error) {
	var mu sync.Mutex
	out := make(map[renderer.Channel]Result, len(stack.Channels))

	g, gCtx := errgroup.WithContext(ctx)
	for _, c := range stack.ChannelNames() {
		g.Go(func() error {
			res, err := w.WriteChannel(gCtx, c, stack.Frames, stack.Channels[c], dir)
			if err != nil {
				return err
			}
			mu.Lock()
			out[c] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *writer) WriteMetadata(record any, path string) error {
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), w.perm); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	w.logger.Info("metadata written", slog.String("path", path))
	return nil
}

func writeImage(path string, img image.Image, ext string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if ext == "tiff" {
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	} else {
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func encodeRGBA(a *renderer.Array) (image.Image, error) {
	if a.IsLabel() || a.Depth != 4 {
		return nil, fmt.Errorf("rgba needs 4 float components, got %d", a.Depth)
	}
	img := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: to8(a.At(x, y, 0)),
				G: to8(a.At(x, y, 1)),
				B: to8(a.At(x, y, 2)),
				A: to8(a.At(x, y, 3)),
			})
		}
	}
	return img, nil
}

func (w *writer) encodeSegmentation(a *renderer.Array) (image.Image, error) {
	if !a.IsLabel() {
		return nil, fmt.Errorf("segmentation needs a label array")
	}
	img := image.NewPaletted(image.Rect(0, 0, a.Width, a.Height), w.palette)
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			l := a.LabelAt(x, y)
			if int(l) >= len(w.palette) {
				return nil, fmt.Errorf("label %d exceeds the %d-entry palette", l, len(w.palette))
			}
			img.SetColorIndex(x, y, uint8(l))
		}
	}
	return img, nil
}

// encodeScaled maps a single-component array onto 16-bit gray over r.
func encodeScaled(a *renderer.Array, r ValueRange) (image.Image, error) {
	if a.IsLabel() || a.Depth != 1 {
		return nil, fmt.Errorf("scaled output needs 1 float component, got %d", a.Depth)
	}
	span := r.Max - r.Min
	img := image.NewGray16(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			v := float32(0)
			if span > 0 {
				v = (a.At(x, y, 0) - r.Min) / span
			}
			img.SetGray16(x, y, color.Gray16{Y: to16(v)})
		}
	}
	return img, nil
}

// encodeUnit maps up to three components from [lo, hi] onto 16-bit RGB.
func encodeUnit(a *renderer.Array, lo, hi float32) (image.Image, error) {
	if a.IsLabel() {
		return nil, fmt.Errorf("float output needs a float array")
	}
	img := image.NewNRGBA64(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			var c [3]uint16
			for k := 0; k < min(3, a.Depth); k++ {
				c[k] = to16((a.At(x, y, k) - lo) / (hi - lo))
			}
			if a.Depth == 1 {
				c[1], c[2] = c[0], c[0]
			}
			img.SetNRGBA64(x, y, color.NRGBA64{R: c[0], G: c[1], B: c[2], A: math.MaxUint16})
		}
	}
	return img, nil
}

// valueRange returns the finite min and max over every array.
func valueRange(arrays []*renderer.Array) ValueRange {
	r := ValueRange{Min: math.MaxFloat32, Max: -math.MaxFloat32}
	for _, a := range arrays {
		for _, v := range a.Data {
			if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
				continue
			}
			r.Min, r.Max = min(r.Min, v), max(r.Max, v)
		}
	}
	if r.Min > r.Max {
		return ValueRange{}
	}
	return r
}

func to8(v float32) uint8 {
	return uint8(math.Round(float64(mgl32.Clamp(v, 0, 1)) * math.MaxUint8))
}

func to16(v float32) uint16 {
	return uint16(math.Round(float64(mgl32.Clamp(v, 0, 1)) * math.MaxUint16))
}
