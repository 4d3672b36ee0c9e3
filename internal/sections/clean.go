package sections

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("```(?:json)?\\s*|\\s*```")

// CleanResponse removes markdown code fences from a model reply.
func CleanResponse(raw string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))
}
