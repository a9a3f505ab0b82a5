package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/prompt"
)

// mockTiktoken implements a mock tokenizer for testing
type mockTiktoken struct {
	countTokens func(string) int
}

func (m *mockTiktoken) Encode(text string, allowedSpecial, disallowedSpecial []string) []int {
	tokens := make([]int, m.countTokens(text))
	for i := range tokens {
		tokens[i] = i
	}
	return tokens
}

func (m *mockTiktoken) Decode(tokens []int) string {
	return ""
}

func (m *mockTiktoken) CountTokens(text string) int {
	return m.countTokens(text)
}

func wordCounter() *TokenCounter {
	return NewTokenCounterWithTokenizer(&mockTiktoken{
		countTokens: func(s string) int { return len(strings.Fields(s)) },
	})
}

type message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

type chatBody struct {
	Messages []message `json:"messages" validate:"required,min=1,dive"`
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	var se *errors.ScribeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errors.InvalidRequestError, se.Type)
	fields, ok := se.Details["fields"].([]FieldError)
	require.True(t, ok)
	return fields
}

func TestStruct(t *testing.T) {
	v := New(nil, 0)

	tests := []struct {
		name      string
		body      interface{}
		wantField string
		wantCode  string
		wantMsg   string
	}{
		{
			name:      "invalid role",
			body:      chatBody{Messages: []message{{Role: "robot", Content: "hi"}}},
			wantField: "messages[0].role",
			wantCode:  "oneof_validation_failed",
			wantMsg:   "messages[0].role must be one of: user, assistant, system",
		},
		{
			name:      "no messages",
			body:      chatBody{},
			wantField: "messages",
			wantCode:  "required_validation_failed",
			wantMsg:   "field 'messages' is required",
		},
		{
			name:      "blank exam subject",
			body:      prompt.ExamRequest{Subject: "   ", Topic: "Cells"},
			wantField: "subject",
			wantCode:  "notblank_validation_failed",
			wantMsg:   "field 'subject' is required",
		},
		{
			name:      "count out of range",
			body:      prompt.Options{Count: 51},
			wantField: "count",
			wantCode:  "max_validation_failed",
			wantMsg:   "count must be at most 50",
		},
		{
			name:      "camel case option name",
			body:      prompt.Options{QuestionType: "oral"},
			wantField: "questionType",
			wantCode:  "oneof_validation_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.body)
			require.Error(t, err)
			fields := fieldErrors(t, err)
			require.NotEmpty(t, fields)
			assert.Equal(t, tt.wantField, fields[0].Field)
			assert.Equal(t, tt.wantCode, fields[0].Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, fields[0].Message)
			}
		})
	}
}

func TestStructValid(t *testing.T) {
	v := New(nil, 0)
	assert.NoError(t, v.Struct(chatBody{Messages: []message{{Role: "user", Content: "hi"}}}))
	assert.NoError(t, v.Struct(prompt.ExamRequest{Subject: "Biology", Topic: "Cells"}))
	assert.NoError(t, v.Struct(prompt.Options{}))
}

func TestContentBudget(t *testing.T) {
	v := New(wordCounter(), 3)

	assert.NoError(t, v.Content("content", "one two three"))
	assert.NoError(t, v.Content("content", ""))

	err := v.Content("content", "one two three four")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	fields := fieldErrors(t, err)
	assert.Equal(t, "token_limit_exceeded", fields[0].Code)
	assert.Equal(t, "3", fields[0].Value)
}

func TestContentBudgetDisabled(t *testing.T) {
	long := strings.Repeat("word ", 1000)
	assert.NoError(t, New(nil, 3).Content("content", long))
	assert.NoError(t, New(wordCounter(), 0).Content("content", long))
}
