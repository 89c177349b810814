package steps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/textgen"
)

const defaultClassifyPrompt = "Classify the following text into exactly one of these categories: %s. Answer with the category name only."

type classifyConfig struct {
	Categories []string `json:"categories"`
	Prompt     string   `json:"prompt"`
}

// Classify asks the text generator for a category and maps its free-text
// answer back onto the configured categories.
type Classify struct {
	base
	cfg         classifyConfig
	gen         textgen.Generator
	exact       []*regexp.Regexp
	insensitive []*regexp.Regexp
}

func newClassify(b base, deps Deps) (model.Step, error) {
	var cfg classifyConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Categories) == 0 {
		return nil, errors.New("classify needs at least one category")
	}
	if deps.Generator == nil {
		return nil, errors.New("classify needs a text generator")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = fmt.Sprintf(defaultClassifyPrompt, strings.Join(cfg.Categories, ", "))
	}

	c := &Classify{base: b, cfg: cfg, gen: deps.Generator}
	for _, cat := range cfg.Categories {
		word := `\b` + regexp.QuoteMeta(cat) + `\b`
		c.exact = append(c.exact, regexp.MustCompile(word))
		c.insensitive = append(c.insensitive, regexp.MustCompile(`(?i)`+word))
	}
	return c, nil
}

func (c *Classify) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	text, carry, err := textInput(c.name, input)
	if err != nil {
		return nil, err
	}

	answer, err := c.gen.Generate(ctx, textgen.Prompt(c.cfg.Prompt, text))
	if err != nil {
		return nil, fmt.Errorf("text generation: %w", err)
	}
	category, confidence := c.match(strings.TrimSpace(answer))

	return merge(carry, map[string]any{
		"text":       text,
		"category":   category,
		"confidence": confidence,
	}), nil
}

// match prefers an exact answer, then the earliest case-sensitive word
// match, then a case-insensitive one. Anything else falls back to the
// first category with zero confidence.
func (c *Classify) match(answer string) (string, float64) {
	for _, cat := range c.cfg.Categories {
		if strings.EqualFold(answer, cat) {
			return cat, 0.95
		}
	}
	if i := earliest(c.exact, answer); i >= 0 {
		return c.cfg.Categories[i], 0.75
	}
	if i := earliest(c.insensitive, answer); i >= 0 {
		return c.cfg.Categories[i], 0.5
	}
	return c.cfg.Categories[0], 0
}

func earliest(patterns []*regexp.Regexp, s string) int {
	best, at := -1, len(s)+1
	for i, re := range patterns {
		if loc := re.FindStringIndex(s); loc != nil && loc[0] < at {
			best, at = i, loc[0]
		}
	}
	return best
}
