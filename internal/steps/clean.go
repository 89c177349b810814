package steps

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"go-pipeline-engine/internal/model"
)

type cleaner func(rec map[string]any, pc *model.PipelineContext) map[string]any

var cleaners = map[string]cleaner{
	"normalizeNames":     normalizeNames,
	"convertToLowercase": convertToLowercase,
	"convertToUppercase": convertToUppercase,
	"trimStrings":        trimStrings,
	"removeNulls":        removeNulls,
	"addTimestamp":       addTimestamp,
	"addMetadata":        addMetadata,
}

func lookupCleaners(names []string) ([]cleaner, error) {
	out := make([]cleaner, 0, len(names))
	for _, n := range names {
		c, ok := cleaners[n]
		if !ok {
			return nil, fmt.Errorf("unknown cleaner: %s", n)
		}
		out = append(out, c)
	}
	return out, nil
}

// applyCleaners runs cleaners over a copy of rec.
func applyCleaners(rec map[string]any, list []cleaner, pc *model.PipelineContext) map[string]any {
	result := make(map[string]any, len(rec))
	for k, v := range rec {
		result[k] = v
	}
	for _, c := range list {
		result = c(result, pc)
	}
	return result
}

// normalizeNames title-cases name-like fields
func normalizeNames(rec map[string]any, _ *model.PipelineContext) map[string]any {
	for key, val := range rec {
		if str, ok := val.(string); ok && isNameLikeField(strings.ToLower(key)) {
			rec[key] = titleCase(str)
		}
	}
	return rec
}

func isNameLikeField(fieldName string) bool {
	namePatterns := []string{
		"name", "title", "label",
		"country", "location", "city", "state", "region",
		"category", "status",
		"company", "organization", "department", "team",
	}
	for _, pattern := range namePatterns {
		if strings.Contains(fieldName, pattern) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func convertToLowercase(rec map[string]any, _ *model.PipelineContext) map[string]any {
	for key, val := range rec {
		if str, ok := val.(string); ok {
			rec[key] = strings.ToLower(str)
		}
	}
	return rec
}

func convertToUppercase(rec map[string]any, _ *model.PipelineContext) map[string]any {
	for key, val := range rec {
		if str, ok := val.(string); ok {
			rec[key] = strings.ToUpper(str)
		}
	}
	return rec
}

func trimStrings(rec map[string]any, _ *model.PipelineContext) map[string]any {
	for key, val := range rec {
		if str, ok := val.(string); ok {
			rec[key] = strings.TrimSpace(str)
		}
	}
	return rec
}

func removeNulls(rec map[string]any, _ *model.PipelineContext) map[string]any {
	for key, val := range rec {
		if val == nil {
			delete(rec, key)
		}
	}
	return rec
}

func addTimestamp(rec map[string]any, _ *model.PipelineContext) map[string]any {
	rec["processed_at"] = time.Now().UTC().Format(time.RFC3339)
	return rec
}

// addMetadata stamps the record with the run that produced it
func addMetadata(rec map[string]any, pc *model.PipelineContext) map[string]any {
	rec["_processed_at"] = time.Now().UTC().Format(time.RFC3339)
	if pc != nil {
		rec["_pipeline_id"] = pc.PipelineID
		rec["_run_id"] = pc.RunID
	}
	return rec
}
