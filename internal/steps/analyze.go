package steps

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/pkg/utils"
)

var (
	positiveWords = map[string]bool{"good": true, "great": true, "excellent": true, "positive": true, "amazing": true, "wonderful": true, "happy": true}
	negativeWords = map[string]bool{"bad": true, "terrible": true, "negative": true, "awful": true, "horrible": true, "sad": true, "disappointing": true}
)

// Analyze computes local statistics for text, arrays and objects. It needs
// no external collaborator.
type Analyze struct {
	base
}

func newAnalyze(b base, _ Deps) (model.Step, error) {
	return &Analyze{base: b}, nil
}

func (a *Analyze) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	switch v := input.(type) {
	case string:
		return analyzeText(v), nil
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			return merge(v, analyzeText(s)), nil
		}
		return analyzeObject(v), nil
	case model.GenericRecord:
		return analyzeObject(v), nil
	}
	if items, ok := asArray(input); ok {
		return analyzeList(items), nil
	}
	return nil, model.InvalidInput(a.name, "text, array or object", input)
}

func analyzeText(text string) map[string]any {
	words := strings.Fields(text)
	chars := utf8.RuneCountInString(text)

	sentences := 0
	for _, s := range strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' }) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}

	stats := map[string]any{
		"word_count":              float64(len(words)),
		"char_count":              float64(chars),
		"sentence_count":          float64(sentences),
		"average_word_length":     0.0,
		"average_sentence_length": 0.0,
	}
	if len(words) > 0 {
		stats["average_word_length"] = float64(chars) / float64(len(words))
	}
	if sentences > 0 {
		stats["average_sentence_length"] = float64(len(words)) / float64(sentences)
	}

	return map[string]any{
		"analysis":  stats,
		"entities":  extractEntities(words),
		"sentiment": sentiment(words),
	}
}

// extractEntities treats all-caps words of two or more letters as
// organisations and digit-bearing words with / or - as dates.
func extractEntities(words []string) []any {
	entities := []any{}
	for i, raw := range words {
		w := strings.TrimFunc(raw, unicode.IsPunct)
		if utf8.RuneCountInString(w) > 1 && strings.ToUpper(w) == w && strings.IndexFunc(w, unicode.IsLetter) >= 0 {
			entities = append(entities, map[string]any{"type": "organization", "text": w, "position": float64(i)})
			continue
		}
		if strings.ContainsAny(w, "/-") && strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			entities = append(entities, map[string]any{"type": "date", "text": w, "position": float64(i)})
		}
	}
	return entities
}

func sentiment(words []string) map[string]any {
	var pos, neg int
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, unicode.IsPunct))
		switch {
		case positiveWords[w]:
			pos++
		case negativeWords[w]:
			neg++
		}
	}

	score := 0.5
	if pos+neg > 0 {
		score = (float64(pos-neg)/float64(pos+neg) + 1) / 2
	}
	label := "neutral"
	switch {
	case score > 0.6:
		label = "positive"
	case score < 0.4:
		label = "negative"
	}
	return map[string]any{
		"score":          score,
		"sentiment":      label,
		"positive_count": float64(pos),
		"negative_count": float64(neg),
	}
}

func analyzeList(items []any) map[string]any {
	var nums []float64
	var texts []string
	var trues, falses int

	for _, item := range items {
		switch v := item.(type) {
		case bool:
			if v {
				trues++
			} else {
				falses++
			}
		case string:
			texts = append(texts, v)
		default:
			if f, ok := utils.Numeric(v); ok {
				nums = append(nums, f)
			}
		}
	}

	stats := map[string]any{}
	if len(nums) > 0 {
		sum, lo, hi := 0.0, nums[0], nums[0]
		for _, n := range nums {
			sum += n
			lo = min(lo, n)
			hi = max(hi, n)
		}
		stats["numeric"] = map[string]any{
			"count":   float64(len(nums)),
			"sum":     sum,
			"average": sum / float64(len(nums)),
			"min":     lo,
			"max":     hi,
		}
	}
	if len(texts) > 0 {
		total := 0
		shortest, longest := texts[0], texts[0]
		for _, s := range texts {
			n := utf8.RuneCountInString(s)
			total += n
			if n < utf8.RuneCountInString(shortest) {
				shortest = s
			}
			if n > utf8.RuneCountInString(longest) {
				longest = s
			}
		}
		stats["text"] = map[string]any{
			"count":          float64(len(texts)),
			"average_length": float64(total) / float64(len(texts)),
			"shortest":       shortest,
			"longest":        longest,
		}
	}
	if trues+falses > 0 {
		stats["boolean"] = map[string]any{
			"count":       float64(trues + falses),
			"true_count":  float64(trues),
			"false_count": float64(falses),
		}
	}

	return map[string]any{
		"item_count": float64(len(items)),
		"statistics": stats,
	}
}

func analyzeObject(obj map[string]any) map[string]any {
	types := map[string]any{}
	for _, v := range obj {
		name := model.TypeName(v)
		n, _ := types[name].(float64)
		types[name] = n + 1
	}
	return map[string]any{
		"meta": map[string]any{
			"key_count":   float64(len(obj)),
			"value_types": types,
		},
		"data": obj,
	}
}
