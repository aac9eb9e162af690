// Package audio decodes uploaded media into mono float32 PCM at the fixed
// sample rate a model expects.
package audio

import "errors"

var (
	// ErrUnsupportedFormat is returned by native decoders for inputs they
	// cannot handle. The loader falls back to ffmpeg on this error.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
	// ErrEmptyAudio is returned when decoding yields no samples.
	ErrEmptyAudio = errors.New("audio: no samples decoded")
)

// Clip is a mono buffer normalized to [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Downmix averages interleaved channels into a mono buffer.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[base+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts samples from one rate to another with linear
// interpolation. The output holds int(duration*to) samples placed evenly
// over [0, len(samples)]; positions past the last input sample take its value.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 || from <= 0 || to <= 0 {
		return samples
	}
	duration := float64(len(samples)) / float64(from)
	n := int(duration * float64(to))
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	if n == 1 {
		out[0] = samples[0]
		return out
	}

	last := len(samples) - 1
	step := float64(len(samples)) / float64(n-1)
	for i := range out {
		x := float64(i) * step
		if x >= float64(last) {
			out[i] = samples[last]
			continue
		}
		j := int(x)
		frac := float32(x - float64(j))
		out[i] = samples[j] + frac*(samples[j+1]-samples[j])
	}
	return out
}

// pcm16ToFloat32 converts PCM s16le bytes to float32 samples normalized to
// [-1, 1]. A trailing odd byte is ignored.
func pcm16ToFloat32(buf []byte) []float32 {
	n := len(buf) / 2
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		u := uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
		samples[i] = float32(int16(u)) / 32768.0
	}
	return samples
}
