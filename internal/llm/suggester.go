package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Unknown is returned when the model cannot match a field to any attribute
const Unknown = "unknown"

// Completer is the LLM surface the suggester needs
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AttributeSuggester maps a form field's descriptive text to one of a
// fixed set of applicant profile attributes using an LLM
type AttributeSuggester struct {
	completer Completer
	logger    *zap.Logger
}

// NewAttributeSuggester creates a new suggester
func NewAttributeSuggester(completer Completer, logger *zap.Logger) *AttributeSuggester {
	return &AttributeSuggester{
		completer: completer,
		logger:    logger,
	}
}

const suggesterSystemPrompt = `You classify web form fields for a job application assistant.
Given a field's label and attributes, pick which applicant profile attribute it asks for.
Respond with exactly one attribute name from the provided list, or "unknown" if none fits.
Respond with the bare attribute name only. No punctuation, no explanation.`

// Suggest returns the candidate attribute that best matches the field text,
// or Unknown. A response outside the candidate set is treated as Unknown.
func (s *AttributeSuggester) Suggest(ctx context.Context, fieldText string, candidates []string) (string, error) {
	prompt := fmt.Sprintf("Field: %q\n\nAttributes:\n%s", fieldText, strings.Join(candidates, "\n"))

	raw, err := s.completer.Complete(ctx, suggesterSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("suggesting attribute: %w", err)
	}

	answer := normalizeAnswer(raw)

	if answer == Unknown {
		return Unknown, nil
	}
	for _, c := range candidates {
		if answer == c {
			return c, nil
		}
	}

	s.logger.Debug("model answer outside candidate set",
		zap.String("answer", answer),
		zap.String("field", fieldText),
	)
	return Unknown, nil
}

// normalizeAnswer strips quoting and punctuation the model may add
func normalizeAnswer(raw string) string {
	answer := strings.ToLower(strings.TrimSpace(raw))
	answer = strings.Trim(answer, "\"'`.,:")
	// Take the first token if the model rambled
	if idx := strings.IndexAny(answer, " \n\t"); idx > 0 {
		answer = answer[:idx]
	}
	return strings.Trim(answer, "\"'`.,:")
}
