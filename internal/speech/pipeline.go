package speech

import (
	"context"

	"github.com/tidwall/gjson"

	"voice-resume-backend/internal/shared/telemetry"
)

const (
	asrService         = "bhashini/ai4bharat/conformer-multilingual-asr"
	translationService = "ai4bharat/indictrans-v2-all-gpu--t4"
	targetLanguage     = "en"
	samplingRate       = 16000
)

// Translate runs speech recognition on audioB64 in sourceLang and translates the
// transcript to English. It never fails: unusable responses yield NoTranscription.
func (c *Client) Translate(ctx context.Context, audioB64, sourceLang string) string {
	payload := audioPayload(audioB64,
		pipelineTask{
			TaskType: "asr",
			Config: taskConfig{
				Language:       &taskLanguage{SourceLanguage: sourceLang},
				ServiceID:      asrService,
				AudioFormat:    "wav",
				SamplingRate:   samplingRate,
				Postprocessors: []string{"itn"},
			},
		},
		pipelineTask{
			TaskType: "translation",
			Config: taskConfig{
				Language:  &taskLanguage{SourceLanguage: sourceLang, TargetLanguage: targetLanguage},
				ServiceID: translationService,
			},
		},
	)

	body, err := c.post(ctx, payload)
	if err != nil {
		telemetry.Error("speech.translate_failed", map[string]any{"err": err, "lang": sourceLang})
		return NoTranscription
	}
	if !gjson.ValidBytes(body) {
		telemetry.Error("speech.translate_failed", map[string]any{"err": "response is not JSON", "lang": sourceLang})
		return NoTranscription
	}

	stages := gjson.GetBytes(body, "pipelineResponse")
	if n := len(stages.Array()); n < 2 {
		telemetry.Warn("speech.translate_incomplete", map[string]any{"stages": n, "lang": sourceLang})
		return NoTranscription
	}

	target := gjson.GetBytes(body, "pipelineResponse.1.output.0.target")
	if !target.Exists() || target.Type != gjson.String {
		telemetry.Warn("speech.translate_incomplete", map[string]any{"err": "target missing", "lang": sourceLang})
		return NoTranscription
	}

	telemetry.Info("speech.transcribed", map[string]any{
		"lang":        sourceLang,
		"source":      gjson.GetBytes(body, "pipelineResponse.0.output.0.source").String(),
		"translation": target.String(),
	})
	return target.String()
}
