// Package processing turns study material into generated study aids.
// It validates requests, renders prompts, calls the model invoker and
// post-processes what comes back.
package processing

import (
	"encoding/json"

	"github.com/teilomillet/studyscribe/server/prompt"
)

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// GenerationRequest asks for one transformation of Content. Options are
// action specific; unset fields take the action's defaults.
type GenerationRequest struct {
	Action  prompt.Action  `json:"action"`
	Content string         `json:"content"`
	Options prompt.Options `json:"options"`
}

// GenerationResult is the outcome of a transformation. Tags is set only
// for extract-tags. Degraded marks a softened upstream failure and is
// never serialized.
type GenerationResult struct {
	Text     string   `json:"text,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Degraded bool     `json:"-"`
}

// MarshalJSON writes {"text"} for text results and {"tags"} for tag
// results, keeping an empty tag list as [] rather than dropping it.
func (r GenerationResult) MarshalJSON() ([]byte, error) {
	if r.Tags == nil {
		return json.Marshal(struct {
			Text string `json:"text"`
		}{r.Text})
	}
	return json.Marshal(struct {
		Text string   `json:"text,omitempty"`
		Tags []string `json:"tags"`
	}{r.Text, r.Tags})
}
