package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/textgen"
)

const (
	defaultSummaryLength   = 200
	defaultSummarizePrompt = "Summarize the following text in at most %d characters."
)

type summarizeConfig struct {
	MaxLength int    `json:"max_length"`
	Prompt    string `json:"prompt"`
}

// Summarize produces {original, summary, length}. length is the number of
// characters (runes) in summary and never exceeds max_length.
type Summarize struct {
	base
	cfg summarizeConfig
	gen textgen.Generator
}

func newSummarize(b base, deps Deps) (model.Step, error) {
	var cfg summarizeConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.MaxLength < 0 {
		return nil, errors.New("max_length must not be negative")
	}
	if cfg.MaxLength == 0 {
		cfg.MaxLength = defaultSummaryLength
	}
	if deps.Generator == nil {
		return nil, errors.New("summarize needs a text generator")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = fmt.Sprintf(defaultSummarizePrompt, cfg.MaxLength)
	}
	return &Summarize{base: b, cfg: cfg, gen: deps.Generator}, nil
}

func (s *Summarize) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	text, carry, err := textInput(s.name, input)
	if err != nil {
		return nil, err
	}

	answer, err := s.gen.Generate(ctx, textgen.Prompt(s.cfg.Prompt, text))
	if err != nil {
		return nil, fmt.Errorf("text generation: %w", err)
	}
	summary := strings.Join(strings.Fields(answer), " ")
	if summary == "" {
		summary = strings.Join(strings.Fields(text), " ")
	}
	summary = truncate(summary, s.cfg.MaxLength)

	return merge(carry, map[string]any{
		"original": text,
		"summary":  summary,
		"length":   utf8.RuneCountInString(summary),
	}), nil
}

// truncate cuts s to at most n runes, backing off to a word boundary when
// one exists in the second half of the cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 && utf8.RuneCountInString(cut[:i]) >= n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
