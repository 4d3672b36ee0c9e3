package transcription

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"voice-resume-backend/internal/shared/metrics"
	"voice-resume-backend/internal/shared/telemetry"
	"voice-resume-backend/internal/speech"
)

var (
	ErrMissingAudio = errors.New("audio is required")
	ErrInvalidAudio = errors.New("invalid base64 audio")
)

// Pipeline is the remote speech service used for detection and translation.
type Pipeline interface {
	ResolveLanguage(ctx context.Context, audioB64, override string) string
	Translate(ctx context.Context, audioB64, sourceLang string) string
}

// Service turns posted audio into English text.
type Service struct {
	Pipeline Pipeline
	// Prepare resamples the audio file at path and returns it base64 encoded.
	Prepare func(path string) (string, error)
	// TempDir holds decoded uploads while they are processed; empty means os.TempDir.
	TempDir string
}

// NewService constructs a Service backed by the speech pipeline client.
func NewService(pipeline Pipeline) *Service {
	return &Service{Pipeline: pipeline, Prepare: speech.PrepareAudio}
}

// AudioToText decodes audioB64, resolves its language and returns the translated text.
// Only undecodable input is an error; remote and audio failures come back as sentinel text.
func (s *Service) AudioToText(ctx context.Context, audioB64, lang string) (string, error) {
	audioB64 = strings.TrimSpace(audioB64)
	if audioB64 == "" {
		return "", ErrMissingAudio
	}
	raw, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	f, err := os.CreateTemp(s.TempDir, "audio-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp audio: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp audio: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp audio: %w", err)
	}

	// Detection sees the audio as uploaded, before resampling.
	source := s.Pipeline.ResolveLanguage(ctx, base64.StdEncoding.EncodeToString(raw), lang)

	prepared, err := s.Prepare(path)
	if err != nil {
		metrics.IncTranscription(true)
		telemetry.Error("transcription.audio_failed", map[string]any{"err": err, "bytes": len(raw)})
		return speech.AudioProcessingFailed, nil
	}

	text := s.Pipeline.Translate(ctx, prepared, source)
	metrics.IncTranscription(text == speech.NoTranscription)
	return text, nil
}
