package prompt

import (
	"strings"
	"text/template"
)

// Personas used as system instructions.
const (
	ChatPersona = "You are StudyScribe, a friendly and knowledgeable study assistant. " +
		"Explain concepts clearly, check understanding with short follow-up questions when useful, " +
		"and keep answers focused on helping the student learn."

	SummarizerPersona = "You are an expert summarizer who condenses study material into accurate, " +
		"well-organized summaries without adding information that is not in the source."

	FlashcardPersona = "You are an expert educator who writes effective flashcards for spaced-repetition study."

	QuizPersona = "You are an expert educator who writes fair, unambiguous quiz questions with correct answers."

	NoteTakerPersona = "You are an expert note-taker who turns raw material into clear, structured study notes."

	AdvisorPersona = "You are a learning advisor who recommends study resources tailored to a student's recent work."

	TaggerPersona = "You are a knowledge organization expert who labels study material with concise topical tags."

	ExamPersona = "You are an experienced exam designer who writes balanced exams that assess understanding, " +
		"not just recall."
)

var funcs = template.FuncMap{
	"join":  strings.Join,
	"deref": func(b *bool) bool { return b != nil && *b },
}

// templates is the static action table. ActionChat has no template: its
// prompt is the user's message verbatim.
var templates = map[Action]*entry{
	ActionChat: {system: ChatPersona},
	ActionSummarize: {
		system: SummarizerPersona,
		text: mustParse("summarize", `Summarize the following content.
Length: {{.Options.Length}}
Style: {{.Options.Style}}
{{- if eq .Options.Style "bullet"}}
Present the summary as bullet points.
{{- end}}

Content:
{{.Content}}`),
	},
	ActionFlashcards: {
		system: FlashcardPersona,
		text: mustParse("flashcards", `Create {{.Options.Count}} flashcards from the following content.
Format: {{.Options.Format}}
{{- if eq .Options.Format "qa"}}
Write each card as a question on the front and its answer on the back.
{{- else if eq .Options.Format "term"}}
Write each card as a term on the front and its definition on the back.
{{- else}}
Write each card as a sentence with a blank on the front and the missing word on the back.
{{- end}}

Content:
{{.Content}}`),
	},
	ActionQuiz: {
		system: QuizPersona,
		text: mustParse("quiz", `Create a quiz with {{.Options.Count}} {{.Options.QuestionType}} questions based on the following content.
Provide the correct answer for every question.

Content:
{{.Content}}`),
	},
	ActionNotes: {
		system: NoteTakerPersona,
		text: mustParse("notes", `Write study notes for the following content.
Structure: {{.Options.Structure}}
Detail level: {{.Options.DetailLevel}}

Content:
{{.Content}}`),
	},
	ActionRecommendations: {
		system: AdvisorPersona,
		text: mustParse("recommendations", `Based on the student's recent topics and study history, recommend exactly 3 study resources.
For each resource give a title, a one-sentence description and why it fits.

Recent topics: {{join .Options.RecentTopics ", "}}
Study history: {{.Options.StudyHistory}}`),
	},
	ActionExtractTags: {
		system: TaggerPersona,
		text: mustParse("extract-tags", `Extract the key topics of the following content as short tags.
Respond only with a comma-separated list of tags and nothing else.

Content:
{{.Content}}`),
	},
}

type entry struct {
	system string
	text   *template.Template
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}
