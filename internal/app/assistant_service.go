package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"healthlog/internal/domain"
)

const maxPromptRunes = 8000

var (
	// ErrEmptyPrompt indicates a blank assistant prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")
	// ErrPromptTooLong indicates a prompt over maxPromptRunes characters.
	ErrPromptTooLong = errors.New("prompt is too long")
	// ErrAssistantDisabled indicates no completion backend is configured.
	ErrAssistantDisabled = errors.New("assistant is not configured")
)

// AssistantService forwards user prompts to a completion backend.
type AssistantService struct {
	llm domain.Completer
}

// NewAssistantService creates an AssistantService. A nil completer leaves
// the assistant disabled.
func NewAssistantService(llm domain.Completer) *AssistantService {
	return &AssistantService{llm: llm}
}

// Enabled reports whether a completion backend is configured.
func (s *AssistantService) Enabled() bool {
	return s.llm != nil
}

// Ask validates the prompt locally and returns the model's reply text.
func (s *AssistantService) Ask(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if utf8.RuneCountInString(prompt) > maxPromptRunes {
		return "", ErrPromptTooLong
	}
	if s.llm == nil {
		return "", ErrAssistantDisabled
	}
	return s.llm.Complete(ctx, prompt)
}
