// Package textgen provides the text-completion collaborator used by the
// classification and summarization steps.
package textgen

import (
	"context"
	"strings"
	"unicode"
)

// Separator divides the instruction from the raw input in a prompt.
const Separator = "\n\n---\n"

// Generator returns free text for a prompt. Responses are untrusted and may
// be empty.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Prompt appends payload to instruction.
func Prompt(instruction, payload string) string {
	return strings.TrimSpace(instruction) + Separator + payload
}

// Local is an offline extractive generator. It answers with the leading
// sentences of the payload and never fails.
type Local struct {
	// MaxSentences defaults to 3.
	MaxSentences int
}

func (l Local) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload := prompt
	if _, after, found := strings.Cut(prompt, Separator); found {
		payload = after
	}

	n := l.MaxSentences
	if n <= 0 {
		n = 3
	}
	return strings.Join(firstSentences(payload, n), " "), nil
}

func firstSentences(text string, n int) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		if unicode.IsSpace(r) {
			r = ' '
		}
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
				out = append(out, s)
			}
			cur.Reset()
			if len(out) == n {
				return out
			}
		}
	}
	if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
		out = append(out, s)
	}
	return out
}
