package speech

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// TargetSampleRate is the rate the recognition service expects.
const TargetSampleRate = 16000

var ErrUnsupportedAudio = errors.New("unsupported audio")

// PrepareAudio loads the WAV file at path, downmixes it to mono, resamples it to
// TargetSampleRate and returns the result as a base64 16-bit PCM WAV.
func PrepareAudio(path string) (string, error) {
	samples, rate, err := loadMono(path)
	if err != nil {
		return "", err
	}
	resampled := Resample(samples, rate, TargetSampleRate)
	data, err := encodePCM16(resampled, TargetSampleRate)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// loadMono decodes path at its native rate into mono samples in [-1, 1].
func loadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a PCM WAV file", ErrUnsupportedAudio)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode audio: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("%w: missing format", ErrUnsupportedAudio)
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("%w: bit depth %d", ErrUnsupportedAudio, bitDepth)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	return Downmix(buf.Data, channels, bitDepth), buf.Format.SampleRate, nil
}

// Downmix averages interleaved integer samples across channels and scales them to [-1, 1].
// 8-bit WAV data is unsigned and is re-centred first.
func Downmix(data []int, channels, bitDepth int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	scale := math.Pow(2, float64(bitDepth-1))
	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			v := data[i*channels+ch]
			if bitDepth == 8 {
				v -= 128
			}
			sum += float64(v)
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

// Resample converts samples from one rate to another by linear interpolation.
func Resample(samples []float64, from, to int) []float64 {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return append([]float64(nil), samples...)
	}
	n := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	if n < 1 {
		n = 1
	}
	ratio := float64(from) / float64(to)
	out := make([]float64, n)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// encodePCM16 writes mono samples as a 16-bit PCM WAV file image.
func encodePCM16(samples []float64, rate int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "resampled-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)
	defer tmp.Close()

	ints := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		ints[i] = int(math.Round(s * math.MaxInt16))
	}

	enc := wav.NewEncoder(tmp, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(name)
}
