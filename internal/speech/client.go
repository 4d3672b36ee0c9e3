package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-resume-backend/internal/shared/metrics"
)

const (
	DefaultEndpoint = "https://dhruva-api.bhashini.gov.in/services/inference/pipeline"
	DefaultLanguage = "hi"

	// NoTranscription is returned in place of text when the pipeline gives nothing usable.
	NoTranscription = "No transcription found"
	// AudioProcessingFailed is returned in place of text when the audio cannot be prepared.
	AudioProcessingFailed = "Audio processing failed"

	maxResponseBytes = 16 << 20
)

// Client talks to the hosted speech inference pipeline.
type Client struct {
	endpoint        string
	token           string
	defaultLanguage string
	httpClient      *http.Client
}

// NewClient constructs a pipeline client. Empty endpoint or language use the package defaults.
func NewClient(endpoint, token string, timeout time.Duration, defaultLanguage string) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(defaultLanguage) == "" {
		defaultLanguage = DefaultLanguage
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:        endpoint,
		token:           token,
		defaultLanguage: defaultLanguage,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

type pipelineRequest struct {
	PipelineTasks []pipelineTask `json:"pipelineTasks"`
	InputData     inputData      `json:"inputData"`
}

type pipelineTask struct {
	TaskType string     `json:"taskType"`
	Config   taskConfig `json:"config"`
}

type taskConfig struct {
	Language       *taskLanguage `json:"language,omitempty"`
	ServiceID      string        `json:"serviceId"`
	AudioFormat    string        `json:"audioFormat,omitempty"`
	SamplingRate   int           `json:"samplingRate,omitempty"`
	Postprocessors []string      `json:"postprocessors,omitempty"`
}

type taskLanguage struct {
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
}

type inputData struct {
	Audio []audioInput `json:"audio"`
}

type audioInput struct {
	AudioContent string `json:"audioContent"`
}

func audioPayload(audioB64 string, tasks ...pipelineTask) pipelineRequest {
	return pipelineRequest{
		PipelineTasks: tasks,
		InputData:     inputData{Audio: []audioInput{{AudioContent: audioB64}}},
	}
}

// post sends payload and returns the raw response body.
func (c *Client) post(ctx context.Context, payload pipelineRequest) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.ObserveSpeechDurationMs(metrics.SinceMillis(start)) }()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode pipeline request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	// The pipeline expects the bare token, no scheme.
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pipeline request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read pipeline response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("pipeline http status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(data)), 300))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
