package speech

import (
	"bytes"
	"encoding/base64"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, rate, channels, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestPrepareAudioResamplesToMono16k(t *testing.T) {
	path := writeWAV(t, 44100, 2, 44100)

	encoded, err := PrepareAudio(path)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	dec := wav.NewDecoder(bytes.NewReader(raw))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, TargetSampleRate, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.EqualValues(t, 16, dec.BitDepth)
	assert.InDelta(t, TargetSampleRate, len(buf.Data), 1)
}

func TestPrepareAudioRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o644))

	_, err := PrepareAudio(path)
	assert.Error(t, err)
}

func TestPrepareAudioMissingFile(t *testing.T) {
	_, err := PrepareAudio(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestDownmixAveragesChannels(t *testing.T) {
	got := Downmix([]int{16384, 0, -16384, -16384}, 2, 16)
	assert.InDeltaSlice(t, []float64{0.25, -0.5}, got, 1e-9)
}

func TestDownmixEightBitIsRecentred(t *testing.T) {
	got := Downmix([]int{128, 255, 0}, 1, 8)
	assert.InDeltaSlice(t, []float64{0, 127.0 / 128.0, -1}, got, 1e-9)
}

func TestResampleLinear(t *testing.T) {
	got := Resample([]float64{0, 1, 2, 3}, 4, 8)
	require.Len(t, got, 8)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}, got, 1e-9)

	same := Resample([]float64{1, 2}, 16000, 16000)
	assert.Equal(t, []float64{1, 2}, same)

	down := Resample(make([]float64, 48000), 48000, 16000)
	assert.Len(t, down, 16000)
}
