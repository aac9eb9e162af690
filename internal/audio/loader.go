package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// IsVideo reports whether ext (with leading dot, any case) names a video
// container whose audio track must be extracted with ffmpeg.
func IsVideo(ext string) bool {
	return videoExtensions[strings.ToLower(ext)]
}

// Loader turns files on disk into mono clips at a requested sample rate.
// WAV and MP3 are decoded natively; everything else goes through ffmpeg.
type Loader struct {
	FFmpegPath string
	// TempDir holds intermediate WAV files. Empty means os.TempDir().
	TempDir string
	Log     *slog.Logger
}

// NewLoader returns a Loader using the given ffmpeg binary.
func NewLoader(ffmpegPath string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Loader{
		FFmpegPath: ffmpegPath,
		Log:        logger.With("component", "audio"),
	}
}

// Load decodes path to mono float32 samples at rate.
func (l *Loader) Load(ctx context.Context, path string, rate int) (*Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		clip *Clip
		err  error
	)
	switch {
	case IsVideo(ext):
		l.Log.Debug("extracting audio track with ffmpeg", "path", filepath.Base(path))
		clip, err = l.transcode(ctx, path, rate)
	case ext == ".wav" || ext == ".wave":
		clip, err = decodeFile(path, func(f *os.File) (*Clip, error) { return DecodeWAV(f) })
	case ext == ".mp3":
		clip, err = decodeFile(path, func(f *os.File) (*Clip, error) { return DecodeMP3(f) })
	default:
		err = fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
	if errors.Is(err, ErrUnsupportedFormat) && !IsVideo(ext) {
		l.Log.Debug("native decoder declined input, using ffmpeg", "path", filepath.Base(path), "reason", err)
		clip, err = l.transcode(ctx, path, rate)
	}
	if err != nil {
		return nil, err
	}

	clip.Samples = Resample(clip.Samples, clip.SampleRate, rate)
	clip.SampleRate = rate
	if len(clip.Samples) == 0 {
		return nil, ErrEmptyAudio
	}
	return clip, nil
}

func decodeFile(path string, decode func(*os.File) (*Clip, error)) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return decode(f)
}

// transcode runs ffmpeg to produce a mono PCM WAV at rate and decodes it.
func (l *Loader) transcode(ctx context.Context, path string, rate int) (*Clip, error) {
	dir := l.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	out := filepath.Join(dir, "nupi-audio-"+uuid.NewString()+".wav")
	defer func() {
		if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.Log.Warn("failed to remove temp file", "path", out, "error", err)
		}
	}()

	cmd := exec.CommandContext(ctx, l.FFmpegPath,
		"-i", path,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", "1",
		"-y",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("audio: ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	return decodeFile(out, func(f *os.File) (*Clip, error) { return DecodeWAV(f) })
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
