package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/pkg/utils"
)

// RecordReader looks stored records up by key. *store.DB implements it.
type RecordReader interface {
	GetRecord(ctx context.Context, key string) (store.Record, error)
}

// InputLoader resolves a caller's input against a pipeline's input
// contract. Text input passes through; file, api and database inputs name
// where the data lives.
type InputLoader struct {
	Client   *http.Client
	Records  RecordReader
	FileRoot string // file inputs resolve under it; empty means the working directory
	Retry    RetryPolicy
}

// RetryPolicy governs fetching api inputs. Only transport errors and
// 429/5xx responses are retried.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:       3,
	InitialDelay:      200 * time.Millisecond,
	MaxDelay:          2 * time.Second,
	BackoffMultiplier: 2.0,
	Jitter:            true,
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter {
		d += time.Duration(float64(d) * 0.1 * (rand.Float64() - 0.5))
	}
	return d
}

// Load returns the value the first step receives.
func (l *InputLoader) Load(ctx context.Context, spec model.InputSpec, input any) (any, error) {
	var (
		value any
		err   error
	)
	switch spec.Kind {
	case model.InputText, "":
		value = input
	case model.InputFile:
		value, err = l.loadFile(ref(spec, input, "path"))
	case model.InputAPI:
		value, err = l.fetch(ctx, ref(spec, input, "url"))
	case model.InputDatabase:
		value, err = l.loadRecord(ctx, ref(spec, input, "key"))
	default:
		err = fmt.Errorf("unknown input kind %q", spec.Kind)
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(value, spec.Validation); err != nil {
		return nil, err
	}
	return value, nil
}

// ref is the location named by the caller's input, falling back to the
// input contract's config.
func ref(spec model.InputSpec, input any, key string) string {
	if s, ok := input.(string); ok && s != "" {
		return s
	}
	if m, ok := input.(map[string]any); ok {
		if s, ok := m[key].(string); ok {
			return s
		}
	}
	s, _ := spec.Config[key].(string)
	return s
}

var errFileOutsideRoot = errors.New("file input must be a relative path inside the input directory")

func (l *InputLoader) loadFile(path string) (any, error) {
	if path == "" {
		return nil, errors.New("file input needs a path")
	}
	if !filepath.IsLocal(path) {
		return nil, errFileOutsideRoot
	}
	root := l.FileRoot
	if root == "" {
		root = "."
	}
	files := utils.NewOutputManager(root)
	p, err := files.Resolve(path)
	if err != nil {
		return nil, errFileOutsideRoot
	}

	data, err := os.ReadFile(p)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("read input file: %w", pe.Err)
		}
		return nil, err
	}

	switch files.GetFileType(p) {
	case "json":
		return decodeJSON(data)
	case "csv":
		return parseCSV(bytes.NewReader(data))
	case "yaml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode yaml input: %w", err)
		}
		return utils.Normalize(v), nil
	default:
		return string(data), nil
	}
}

// parseCSV reads a header row and returns one object per data row, with
// values parsed as numbers or booleans where they look like one.
func parseCSV(r io.Reader) ([]any, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return []any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}

	records := []any{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		rec := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = utils.ParseValue(row[i])
			}
		}
		records = append(records, rec)
	}
}

func (l *InputLoader) fetch(ctx context.Context, url string) (any, error) {
	if url == "" {
		return nil, errors.New("api input needs a url")
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	policy := l.Retry
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.delay(attempt - 1)):
			}
		}

		body, retry, err := get(ctx, client, url)
		if err == nil {
			return decodeJSON(body)
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("api input: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("api input: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("api input: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("api input: status %d", resp.StatusCode)
	}
	return body, false, nil
}

func (l *InputLoader) loadRecord(ctx context.Context, key string) (any, error) {
	if key == "" {
		return nil, errors.New("database input needs a record key")
	}
	if l.Records == nil {
		return nil, errors.New("database input: no record store configured")
	}

	rec, err := l.Records.GetRecord(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("database input %q: %w", key, err)
	}
	if len(rec.Data) == 0 {
		return nil, fmt.Errorf("database input %q: record has no data", key)
	}
	return decodeJSON(rec.Data)
}

func decodeJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}
