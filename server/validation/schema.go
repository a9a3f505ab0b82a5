package validation

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/studyscribe/errors"
)

// Tokenizer defines the interface for token counting
type Tokenizer interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
	CountTokens(text string) int
}

// tiktokenWrapper wraps tiktoken to implement our Tokenizer interface
type tiktokenWrapper struct {
	*tiktoken.Tiktoken
}

func (t *tiktokenWrapper) CountTokens(text string) int {
	return len(t.Encode(text, nil, nil))
}

// TokenCounter measures request content against the configured budget.
type TokenCounter struct {
	encoding Tokenizer
}

// NewTokenCounter loads a tiktoken encoding by name, e.g. "cl100k_base".
// The encoding is independent of the backing model; it only approximates
// how large a piece of study material is.
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encoding, err)
	}
	return &TokenCounter{encoding: &tiktokenWrapper{enc}}, nil
}

// NewTokenCounterWithTokenizer builds a counter over any Tokenizer.
func NewTokenCounterWithTokenizer(t Tokenizer) *TokenCounter {
	return &TokenCounter{encoding: t}
}

// CountTokens counts the tokens in text
func (tc *TokenCounter) CountTokens(text string) int {
	return tc.encoding.CountTokens(text)
}

// ValidateContent fails with an InvalidRequestError when content exceeds
// maxTokens. A non-positive limit disables the check.
func (tc *TokenCounter) ValidateContent(field, content string, maxTokens int) error {
	if maxTokens <= 0 || content == "" {
		return nil
	}
	n := tc.CountTokens(content)
	if n > maxTokens {
		return errors.NewInvalidRequestError(
			fmt.Sprintf("%s is too long: %d tokens exceeds the limit of %d", field, n, maxTokens),
			map[string]interface{}{
				"fields": []FieldError{{
					Field:   field,
					Message: "token limit exceeded",
					Code:    "token_limit_exceeded",
					Value:   fmt.Sprintf("%d", maxTokens),
				}},
			},
		)
	}
	return nil
}
