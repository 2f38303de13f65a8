package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned by NewEncoder for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// FrameConsumer receives rendered frames in order.
type FrameConsumer interface {
	Consume(frame *image.RGBA) error
}

// Encoder is a FrameConsumer that writes an output artifact on Close.
type Encoder interface {
	FrameConsumer
	io.Closer
}

// EncoderConfig describes the artifact to produce.
type EncoderConfig struct {
	Path       string
	Width      int
	Height     int
	FrameRate  int
	FFmpegPath string
}

// NewEncoder picks an encoder from the output path: video containers go
// through ffmpeg, .gif is encoded in-process and a path without extension
// is treated as a PNG sequence directory.
func NewEncoder(cfg EncoderConfig) (Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("invalid encoder geometry %dx%d@%d", cfg.Width, cfg.Height, cfg.FrameRate)
	}

	switch ext := strings.ToLower(filepath.Ext(cfg.Path)); ext {
	case ".mp4", ".mov", ".mkv", ".webm":
		return NewFFmpegEncoder(cfg)
	case ".gif":
		return NewGIFEncoder(cfg)
	case "":
		return NewPNGSequence(cfg)
	default:
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
}

func ensureParent(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process.
type FFmpegEncoder struct {
	cfg    EncoderConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	closed bool
}

func NewFFmpegEncoder(cfg EncoderConfig) (*FFmpegEncoder, error) {
	if err := ensureParent(cfg.Path); err != nil {
		return nil, err
	}
	bin := cfg.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.Command(bin,
		"-y", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.Itoa(cfg.FrameRate),
		"-i", "-",
		"-an",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		cfg.Path,
	)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &FFmpegEncoder{cfg: cfg, cmd: cmd, stdin: stdin, stderr: stderr}, nil
}

func (e *FFmpegEncoder) Consume(frame *image.RGBA) error {
	if e.closed {
		return errors.New("ffmpeg encoder closed")
	}
	if err := checkSize(frame, e.cfg); err != nil {
		return err
	}
	if _, err := e.stdin.Write(packedPixels(frame)); err != nil {
		return fmt.Errorf("write frame to ffmpeg: %w%s", err, e.stderrTail())
	}
	return nil
}

func (e *FFmpegEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	closeErr := e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w%s", err, e.stderrTail())
	}
	return closeErr
}

func (e *FFmpegEncoder) stderrTail() string {
	msg := strings.TrimSpace(e.stderr.String())
	if msg == "" {
		return ""
	}
	if len(msg) > 512 {
		msg = msg[len(msg)-512:]
	}
	return ": " + msg
}

// packedPixels returns the frame pixels without row padding.
func packedPixels(frame *image.RGBA) []byte {
	b := frame.Bounds()
	rowLen := b.Dx() * 4
	if frame.Stride == rowLen && b.Min == (image.Point{}) {
		return frame.Pix[:rowLen*b.Dy()]
	}
	out := make([]byte, 0, rowLen*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := frame.PixOffset(b.Min.X, y)
		out = append(out, frame.Pix[start:start+rowLen]...)
	}
	return out
}

func checkSize(frame *image.RGBA, cfg EncoderConfig) error {
	if frame.Bounds().Dx() != cfg.Width || frame.Bounds().Dy() != cfg.Height {
		return fmt.Errorf("frame is %dx%d, encoder expects %dx%d",
			frame.Bounds().Dx(), frame.Bounds().Dy(), cfg.Width, cfg.Height)
	}
	return nil
}

// GIFEncoder quantizes frames to the Plan 9 palette and writes an animated
// GIF on Close. Frames are held in memory, so it suits short clips.
type GIFEncoder struct {
	cfg   EncoderConfig
	anim  gif.GIF
	delay int
}

func NewGIFEncoder(cfg EncoderConfig) (*GIFEncoder, error) {
	if err := ensureParent(cfg.Path); err != nil {
		return nil, err
	}
	return &GIFEncoder{
		cfg:   cfg,
		delay: max(1, int(math.Round(100/float64(cfg.FrameRate)))),
	}, nil
}

func (e *GIFEncoder) Consume(frame *image.RGBA) error {
	if err := checkSize(frame, e.cfg); err != nil {
		return err
	}
	pal := image.NewPaletted(frame.Bounds(), palette.Plan9)
	draw.Draw(pal, pal.Bounds(), frame, frame.Bounds().Min, draw.Src)
	e.anim.Image = append(e.anim.Image, pal)
	e.anim.Delay = append(e.anim.Delay, e.delay)
	return nil
}

func (e *GIFEncoder) Close() error {
	f, err := os.Create(e.cfg.Path)
	if err != nil {
		return fmt.Errorf("create gif: %w", err)
	}
	defer f.Close()

	if err := gif.EncodeAll(f, &e.anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return f.Close()
}

// PNGSequence writes each frame as frame_00000.png, frame_00001.png, ...
// into a directory.
type PNGSequence struct {
	cfg   EncoderConfig
	enc   png.Encoder
	index int
}

func NewPNGSequence(cfg EncoderConfig) (*PNGSequence, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create png directory: %w", err)
	}
	return &PNGSequence{cfg: cfg, enc: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// FramePath returns the file written for frame i.
func (s *PNGSequence) FramePath(i int) string {
	return filepath.Join(s.cfg.Path, fmt.Sprintf("frame_%05d.png", i))
}

func (s *PNGSequence) Consume(frame *image.RGBA) error {
	if err := checkSize(frame, s.cfg); err != nil {
		return err
	}
	f, err := os.Create(s.FramePath(s.index))
	if err != nil {
		return fmt.Errorf("create frame %d: %w", s.index, err)
	}
	defer f.Close()

	if err := s.enc.Encode(f, frame); err != nil {
		return fmt.Errorf("encode frame %d: %w", s.index, err)
	}
	s.index++
	return f.Close()
}

func (s *PNGSequence) Close() error {
	return nil
}
