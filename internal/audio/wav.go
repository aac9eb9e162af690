package audio

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// DecodeWAV reads an integer PCM WAV stream and returns it downmixed to mono.
// Float, compressed and 8-bit files yield ErrUnsupportedFormat.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	switch d.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: WAV bit depth %d", ErrUnsupportedFormat, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: read WAV samples: %w", err)
	}
	channels := int(d.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}

	scale := float32(int64(1) << (d.BitDepth - 1))
	interleaved := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		interleaved[i] = float32(v) / scale
	}

	return &Clip{
		Samples:    Downmix(interleaved, channels),
		SampleRate: int(d.SampleRate),
	}, nil
}
