package processing

import (
	"strings"

	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/prompt"
)

// Normalize shapes raw model output for action. Every action but
// extract-tags passes text through unchanged.
//
// Tags are split on commas, trimmed and emptied entries dropped. Output
// without any comma is kept as a single tag; the returned ParseError is a
// warning for the caller to log, the result is still usable.
func Normalize(action prompt.Action, raw string) (GenerationResult, *errors.ScribeError) {
	if action != prompt.ActionExtractTags {
		return GenerationResult{Text: raw}, nil
	}

	trimmed := strings.TrimSpace(raw)
	if !strings.Contains(trimmed, ",") {
		warn := errors.NewParseError("tag output has no comma separator", raw)
		if trimmed == "" {
			return GenerationResult{Tags: []string{}}, warn
		}
		return GenerationResult{Tags: []string{trimmed}}, warn
	}

	parts := strings.Split(trimmed, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return GenerationResult{Tags: tags}, nil
}
