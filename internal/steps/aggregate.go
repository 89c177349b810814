package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/pkg/utils"
)

type aggregateConfig struct {
	GroupBy   string   `json:"group_by"`
	Metrics   []string `json:"metrics"`
	Fields    []string `json:"fields"`
	SortBy    string   `json:"sort_by"`
	Ascending *bool    `json:"ascending"`
}

// Aggregate groups an array of records and computes per-group metrics.
// Each group becomes one flat record: the group field, record_count and
// <metric>_<field> entries.
type Aggregate struct {
	base
	cfg    aggregateConfig
	fields map[string]bool
}

var knownMetrics = map[string]bool{"count": true, "sum": true, "avg": true, "average": true, "min": true, "max": true, "first": true, "last": true}

func newAggregate(b base, _ Deps) (model.Step, error) {
	var cfg aggregateConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = []string{"count"}
	}
	for _, m := range cfg.Metrics {
		if !knownMetrics[strings.ToLower(m)] {
			return nil, fmt.Errorf("unknown metric %q", m)
		}
	}
	if cfg.GroupBy == "" && cfg.SortBy == "group_value" {
		return nil, errors.New("sort_by group_value needs group_by")
	}

	a := &Aggregate{base: b, cfg: cfg}
	if len(cfg.Fields) > 0 {
		a.fields = make(map[string]bool, len(cfg.Fields))
		for _, f := range cfg.Fields {
			a.fields[f] = true
		}
	}
	return a, nil
}

func (a *Aggregate) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	recs, err := records(a.name, input)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*model.AggregatedResult)
	var order []string
	for _, rec := range recs {
		var groupValue any = "all"
		if a.cfg.GroupBy != "" {
			v, ok := rec[a.cfg.GroupBy]
			if !ok {
				continue
			}
			groupValue = v
		}
		key := fmt.Sprintf("%v", groupValue)

		result, ok := groups[key]
		if !ok {
			result = &model.AggregatedResult{
				GroupKey:   a.cfg.GroupBy,
				GroupValue: groupValue,
				Metrics:    make(map[string]interface{}),
			}
			groups[key] = result
			order = append(order, key)
		}
		for _, metric := range a.cfg.Metrics {
			a.updateMetric(result, rec, metric)
		}
		result.RecordCount++
	}

	results := make([]model.AggregatedResult, 0, len(order))
	for _, key := range order {
		finishAverages(groups[key])
		results = append(results, *groups[key])
	}
	if a.cfg.SortBy != "" {
		ascending := a.cfg.Ascending == nil || *a.cfg.Ascending
		SortAggregatedResults(results, a.cfg.SortBy, ascending)
	}

	out := make([]any, 0, len(results))
	for _, r := range results {
		out = append(out, flatten(r))
	}
	pc.SetMetadata(a.id+".groups", len(out))
	return out, nil
}

func flatten(r model.AggregatedResult) map[string]any {
	rec := make(map[string]any, len(r.Metrics)+2)
	for k, v := range r.Metrics {
		rec[k] = v
	}
	if r.GroupKey != "" {
		rec[r.GroupKey] = r.GroupValue
	}
	rec["record_count"] = float64(r.RecordCount)
	return rec
}

func (a *Aggregate) numericFields(rec map[string]any) map[string]float64 {
	out := make(map[string]float64)
	for key, value := range rec {
		if key == a.cfg.GroupBy || strings.HasPrefix(key, "_") {
			continue
		}
		if a.fields != nil && !a.fields[key] {
			continue
		}
		if _, isString := value.(string); isString {
			continue
		}
		if num, ok := utils.Numeric(value); ok {
			out[key] = num
		}
	}
	return out
}

func (a *Aggregate) updateMetric(result *model.AggregatedResult, rec map[string]any, metric string) {
	switch strings.ToLower(metric) {
	case "count":
		// record_count covers it
	case "sum":
		for key, num := range a.numericFields(rec) {
			addTo(result.Metrics, "sum_"+key, num)
		}
	case "average", "avg":
		for key, num := range a.numericFields(rec) {
			addTo(result.Metrics, "_avgsum_"+key, num)
			addTo(result.Metrics, "_avgcount_"+key, 1)
		}
	case "min":
		for key, num := range a.numericFields(rec) {
			if existing, ok := result.Metrics["min_"+key].(float64); !ok || num < existing {
				result.Metrics["min_"+key] = num
			}
		}
	case "max":
		for key, num := range a.numericFields(rec) {
			if existing, ok := result.Metrics["max_"+key].(float64); !ok || num > existing {
				result.Metrics["max_"+key] = num
			}
		}
	case "first":
		for key, value := range rec {
			if key == a.cfg.GroupBy {
				continue
			}
			if _, exists := result.Metrics["first_"+key]; !exists {
				result.Metrics["first_"+key] = value
			}
		}
	case "last":
		for key, value := range rec {
			if key != a.cfg.GroupBy {
				result.Metrics["last_"+key] = value
			}
		}
	}
}

func addTo(m map[string]interface{}, key string, num float64) {
	existing, _ := m[key].(float64)
	m[key] = existing + num
}

// finishAverages turns the running sums into avg_<field> entries.
func finishAverages(result *model.AggregatedResult) {
	for key, v := range result.Metrics {
		field, ok := strings.CutPrefix(key, "_avgsum_")
		if !ok {
			continue
		}
		count, _ := result.Metrics["_avgcount_"+field].(float64)
		if count > 0 {
			result.Metrics["avg_"+field] = v.(float64) / count
		}
	}
	for key := range result.Metrics {
		if strings.HasPrefix(key, "_avgsum_") || strings.HasPrefix(key, "_avgcount_") {
			delete(result.Metrics, key)
		}
	}
}

// SortAggregatedResults sorts aggregation results by group value, record
// count or a metric name.
func SortAggregatedResults(results []model.AggregatedResult, sortBy string, ascending bool) []model.AggregatedResult {
	value := func(r model.AggregatedResult) interface{} {
		switch sortBy {
		case "group_value":
			return r.GroupValue
		case "record_count":
			return r.RecordCount
		default:
			if metric, exists := r.Metrics[sortBy]; exists {
				return metric
			}
			return r.GroupValue
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		iVal, jVal := value(results[i]), value(results[j])

		iFloat, iOk := utils.Numeric(iVal)
		jFloat, jOk := utils.Numeric(jVal)
		if iOk && jOk {
			if ascending {
				return iFloat < jFloat
			}
			return iFloat > jFloat
		}

		iStr := fmt.Sprintf("%v", iVal)
		jStr := fmt.Sprintf("%v", jVal)
		if ascending {
			return iStr < jStr
		}
		return iStr > jStr
	})
	return results
}
