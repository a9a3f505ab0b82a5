// Package prompt turns a transformation request into the prompt and system
// instruction sent to the model. Templates are compiled once at init and
// never change at runtime.
package prompt

import (
	"github.com/teilomillet/studyscribe/errors"
)

// Action is the requested transformation kind.
type Action string

const (
	ActionChat            Action = "chat"
	ActionSummarize       Action = "summarize"
	ActionFlashcards      Action = "flashcards"
	ActionQuiz            Action = "quiz"
	ActionNotes           Action = "notes"
	ActionRecommendations Action = "recommendations"
	ActionExtractTags     Action = "extract-tags"

	// ActionExam is served by its own entry point, never by Build.
	ActionExam Action = "exam"
)

// generic lists the actions accepted by the transform entry point, in a
// stable order for error details.
var generic = []Action{
	ActionChat,
	ActionSummarize,
	ActionFlashcards,
	ActionQuiz,
	ActionNotes,
	ActionRecommendations,
	ActionExtractTags,
}

// Actions returns the actions Build accepts.
func Actions() []Action {
	out := make([]Action, len(generic))
	copy(out, generic)
	return out
}

// ParseAction maps a wire value onto the closed action set.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := templates[a]; ok {
		return a, nil
	}
	return "", unsupported(s)
}

func unsupported(s string) *errors.ScribeError {
	names := make([]string, len(generic))
	for i, a := range generic {
		names[i] = string(a)
	}
	return errors.NewUnsupportedActionError(s, names)
}

// RequiresContent reports whether the action needs non-empty content.
// Recommendations work from topics and history instead.
func (a Action) RequiresContent() bool {
	return a != ActionRecommendations
}

func (a Action) String() string { return string(a) }
