package prompt

// Options carries the action-specific knobs of a request. Zero values mean
// "use the default" and are resolved by WithDefaults.
type Options struct {
	Length       string   `json:"length,omitempty" validate:"omitempty,oneof=short medium long"`
	Style        string   `json:"style,omitempty" validate:"omitempty,oneof=academic simple bullet"`
	Count        int      `json:"count,omitempty" validate:"omitempty,min=1,max=50"`
	Format       string   `json:"format,omitempty" validate:"omitempty,oneof=qa term fill"`
	QuestionType string   `json:"questionType,omitempty" validate:"omitempty,oneof=multiple-choice true-false short-answer mixed"`
	Structure    string   `json:"structure,omitempty" validate:"omitempty,oneof=outline cornell mindmap"`
	DetailLevel  string   `json:"detailLevel,omitempty" validate:"omitempty,oneof=brief medium detailed"`
	RecentTopics []string `json:"recentTopics,omitempty" validate:"omitempty,dive,required"`
	StudyHistory string   `json:"studyHistory,omitempty"`
}

const (
	defaultLength         = "medium"
	defaultStyle          = "simple"
	defaultFlashcardCount = 10
	defaultQuizCount      = 5
	defaultFormat         = "qa"
	defaultQuestionType   = "multiple-choice"
	defaultStructure      = "outline"
	defaultDetailLevel    = "medium"
)

// WithDefaults returns a copy of o with empty fields filled for action a.
func (o Options) WithDefaults(a Action) Options {
	if o.Length == "" {
		o.Length = defaultLength
	}
	if o.Style == "" {
		o.Style = defaultStyle
	}
	if o.Count == 0 {
		switch a {
		case ActionQuiz:
			o.Count = defaultQuizCount
		default:
			o.Count = defaultFlashcardCount
		}
	}
	if o.Format == "" {
		o.Format = defaultFormat
	}
	if o.QuestionType == "" {
		o.QuestionType = defaultQuestionType
	}
	if o.Structure == "" {
		o.Structure = defaultStructure
	}
	if o.DetailLevel == "" {
		o.DetailLevel = defaultDetailLevel
	}
	return o
}
