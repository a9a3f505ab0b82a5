package prompt

import (
	"bytes"
	"fmt"
	"strings"
)

// ExamRequest describes an exam to generate. Subject and Topic are required;
// everything else has a default.
type ExamRequest struct {
	Subject             string   `json:"subject" validate:"required,notblank"`
	Topic               string   `json:"topic" validate:"required,notblank"`
	Difficulty          string   `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	QuestionCount       int      `json:"questionCount,omitempty" validate:"omitempty,min=1,max=100"`
	QuestionTypes       []string `json:"questionTypes,omitempty" validate:"omitempty,dive,oneof=multiple-choice true-false short-answer essay fill-in-the-blank"`
	IncludeAnswers      *bool    `json:"includeAnswers,omitempty"`
	IncludeExplanations *bool    `json:"includeExplanations,omitempty"`
}

// WithDefaults returns a copy with missing fields filled in.
func (r ExamRequest) WithDefaults() ExamRequest {
	if r.Difficulty == "" {
		r.Difficulty = "medium"
	}
	if r.QuestionCount == 0 {
		r.QuestionCount = 10
	}
	if len(r.QuestionTypes) == 0 {
		r.QuestionTypes = []string{"multiple-choice", "short-answer"}
	}
	if r.IncludeAnswers == nil {
		yes := true
		r.IncludeAnswers = &yes
	}
	if r.IncludeExplanations == nil {
		no := false
		r.IncludeExplanations = &no
	}
	return r
}

var examTemplate = mustParse("exam", `Create a {{.Difficulty}} difficulty exam on {{.Subject}}, focused on {{.Topic}}.
The exam must contain {{.QuestionCount}} questions using these question types: {{join .QuestionTypes ", "}}.
Number every question and give it a clear heading by type.
{{- if deref .IncludeAnswers}}
Include an answer key at the end of the exam.
{{- end}}
{{- if deref .IncludeExplanations}}
For every answer, add a short explanation of why it is correct.
{{- end}}`)

// BuildExam renders the exam prompt. It does not validate the request.
func BuildExam(req ExamRequest) (Prompt, error) {
	var buf bytes.Buffer
	if err := examTemplate.Execute(&buf, req.WithDefaults()); err != nil {
		return Prompt{}, fmt.Errorf("render exam prompt: %w", err)
	}
	return Prompt{Text: strings.TrimSpace(buf.String()), System: ExamPersona}, nil
}
