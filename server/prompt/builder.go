package prompt

import (
	"bytes"
	"fmt"
)

// Prompt is the pair handed to the model invoker.
type Prompt struct {
	Text   string
	System string
}

type templateData struct {
	Content string
	Options Options
}

// Build renders the prompt for a generic action. Option defaults are applied
// here so callers may pass a partially filled Options.
func Build(action Action, content string, opts Options) (Prompt, error) {
	e, ok := templates[action]
	if !ok {
		return Prompt{}, unsupported(string(action))
	}
	if e.text == nil {
		return Prompt{Text: content, System: e.system}, nil
	}

	var buf bytes.Buffer
	data := templateData{Content: content, Options: opts.WithDefaults(action)}
	if err := e.text.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("render %s prompt: %w", action, err)
	}
	return Prompt{Text: buf.String(), System: e.system}, nil
}
