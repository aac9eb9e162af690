package audio

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 stream. go-mp3 always emits 16-bit stereo, which
// is downmixed to mono here.
func DecodeMP3(r io.Reader) (*Clip, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("audio: read MP3 samples: %w", err)
	}
	return &Clip{
		Samples:    Downmix(pcm16ToFloat32(raw), 2),
		SampleRate: d.SampleRate(),
	}, nil
}
