package sections

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"voice-resume-backend/internal/llm"
	"voice-resume-backend/internal/shared/metrics"
	"voice-resume-backend/internal/shared/telemetry"
)

// Extractor turns free-form section answers into structured resume fields.
type Extractor struct {
	Gen     llm.Generator
	Prompts Prompts
}

// NewExtractor constructs an Extractor; nil prompts fall back to the built-in set.
func NewExtractor(gen llm.Generator, prompts Prompts) *Extractor {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Extractor{Gen: gen, Prompts: prompts}
}

// ErrorRecord is returned in place of section data when the call or the parse fails.
func ErrorRecord(msg, raw string) map[string]any {
	return map[string]any{"error": msg, "raw": raw}
}

// ParseSection sends one section's answer to the model and parses its JSON reply.
// It never fails: problems come back as an ErrorRecord.
func (e *Extractor) ParseSection(ctx context.Context, section, text string) any {
	tmpl, ok := e.Prompts.Template(section)
	if !ok {
		return ErrorRecord(fmt.Sprintf("unknown section %q", section), "")
	}
	key := strings.ToLower(strings.TrimSpace(section))

	raw, err := e.Gen.Generate(ctx, BuildPrompt(tmpl, text))
	if err != nil {
		metrics.IncSectionParse(key, true)
		telemetry.Error("sections.request_failed", map[string]any{
			"section": key,
			"err":     err,
		})
		return ErrorRecord(err.Error(), "")
	}

	cleaned := CleanResponse(raw)
	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		metrics.IncSectionParse(key, true)
		telemetry.Warn("sections.parse_failed", map[string]any{
			"section": key,
			"err":     err,
		})
		return ErrorRecord(err.Error(), cleaned)
	}

	metrics.IncSectionParse(key, false)
	if err := CheckShape(key, value); err != nil {
		telemetry.Warn("sections.shape_mismatch", map[string]any{
			"section": key,
			"err":     err,
		})
	}
	return value
}

// ParseAnswers parses every recognized section in answers, one model call each.
// Keys in the result are upper-cased; unrecognized sections are skipped. When two
// keys name the same section ("skills" and "Skills") only the first in sorted
// order is parsed.
func (e *Extractor) ParseAnswers(ctx context.Context, answers map[string]any) map[string]any {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parsed := make(map[string]any, len(keys))
	for _, k := range keys {
		if _, ok := e.Prompts.Template(k); !ok {
			continue
		}
		out := strings.ToUpper(strings.TrimSpace(k))
		if _, dup := parsed[out]; dup {
			telemetry.Warn("sections.duplicate_answer", map[string]any{"section": out, "key": k})
			continue
		}
		text, ok := answers[k].(string)
		if !ok {
			parsed[out] = ErrorRecord(fmt.Sprintf("answer for %q must be a string", k), "")
			continue
		}
		parsed[out] = e.ParseSection(ctx, k, text)
	}
	return parsed
}
