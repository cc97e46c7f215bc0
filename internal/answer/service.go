// Package answer turns a question into answer text using a generation backend.
package answer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// FallbackText is returned in place of an answer whenever generation fails
const FallbackText = "Sorry, I encountered an error. Please try again."

const simplifyPrefix = "Explain this in simple terms that a 5-year-old could understand: "

// errEmptyAnswer marks a backend response that carried no text
var errEmptyAnswer = errors.New("empty answer")

// Generator is an external text generation capability
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service asks a Generator for answers and never returns an error to callers
type Service struct {
	gen Generator
	log *slog.Logger
}

// NewService creates a Service over gen
func NewService(gen Generator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{gen: gen, log: log}
}

// Wrap returns the prompt actually sent for the given simplify mode
func Wrap(prompt string, simplify bool) string {
	if simplify {
		return simplifyPrefix + prompt
	}
	return prompt
}

// Ask returns the answer to prompt, or FallbackText if the backend fails.
// A fallback is indistinguishable from a real answer with the same text.
func (s *Service) Ask(ctx context.Context, prompt string, simplify bool) string {
	start := time.Now()
	text, err := s.gen.Generate(ctx, Wrap(prompt, simplify))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyAnswer
	}
	if err != nil {
		s.log.Error("answer generation failed", "error", err, "simplify", simplify, "elapsed", time.Since(start))
		return FallbackText
	}

	s.log.Debug("answer generated", "simplify", simplify, "chars", len(text), "elapsed", time.Since(start))
	return text
}
