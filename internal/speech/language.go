package speech

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"voice-resume-backend/internal/shared/telemetry"
)

const langDetectService = "bhashini/iitmandi/audio-lang-detection/gpu"

// ResolveLanguage asks the pipeline which language audioB64 is spoken in.
// A non-empty override always wins; detection still runs so the result is logged.
// Without an override the detected code is used, then the default language.
// The result is always a primary subtag ("en-US" becomes "en").
func (c *Client) ResolveLanguage(ctx context.Context, audioB64, override string) string {
	override = primarySubtag(override)
	detected, err := c.detectLanguage(ctx, audioB64)

	switch {
	case override != "":
		telemetry.Info("speech.lang_override", map[string]any{"lang": override, "detected": detected})
		return override
	case err != nil:
		fallback := primarySubtag(c.defaultLanguage)
		telemetry.Warn("speech.lang_detect_failed", map[string]any{"err": err, "fallback": fallback})
		return fallback
	}
	telemetry.Info("speech.lang_detected", map[string]any{"lang": detected})
	return detected
}

// detectLanguage returns the primary subtag of the pipeline's first prediction.
func (c *Client) detectLanguage(ctx context.Context, audioB64 string) (string, error) {
	payload := audioPayload(audioB64, pipelineTask{
		TaskType: "audio-lang-detection",
		Config:   taskConfig{ServiceID: langDetectService},
	})

	body, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", errors.New("response is not JSON")
	}
	code := gjson.GetBytes(body, "pipelineResponse.0.output.0.langPrediction.0.langCode").String()
	if lang := primarySubtag(code); lang != "" {
		return lang, nil
	}
	return "", errors.New("langCode missing")
}

func primarySubtag(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return code
}
