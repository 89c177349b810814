package steps

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"go-pipeline-engine/internal/model"
)

var formatters = map[string]func(columns []string, rows []map[string]any) (string, error){
	"csv":      toCSV,
	"markdown": toMarkdown,
	"html":     toHTML,
}

var contentTypes = map[string]string{
	"csv":      "text/csv",
	"markdown": "text/markdown",
	"html":     "text/html",
	"json":     "application/json",
}

type formatConfig struct {
	Format  string   `json:"format"`
	Columns []string `json:"columns"`
}

// Format renders an object or an array of objects as a document. The
// output is a string; the chosen format is recorded in the run metadata.
type Format struct {
	base
	cfg formatConfig
}

func newFormat(b base, _ Deps) (model.Step, error) {
	var cfg formatConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "md" {
		cfg.Format = "markdown"
	}
	if _, ok := contentTypes[cfg.Format]; !ok {
		return nil, fmt.Errorf("unsupported format %q", cfg.Format)
	}
	return &Format{base: b, cfg: cfg}, nil
}

func (f *Format) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	var rows []map[string]any
	switch v := input.(type) {
	case map[string]any:
		rows = []map[string]any{v}
	case model.GenericRecord:
		rows = []map[string]any{v}
	default:
		var err error
		if rows, err = records(f.name, input); err != nil {
			return nil, err
		}
	}

	var (
		out string
		err error
	)
	if f.cfg.Format == "json" {
		out, err = toJSON(input, rows)
	} else {
		out, err = formatters[f.cfg.Format](f.columns(rows), rows)
	}
	if err != nil {
		return nil, err
	}

	pc.SetMetadata("format", f.cfg.Format)
	pc.SetMetadata("content_type", contentTypes[f.cfg.Format])
	return out, nil
}

// columns is the configured list, or the sorted union of all keys.
func (f *Format) columns(rows []map[string]any) []string {
	if len(f.cfg.Columns) > 0 {
		return f.cfg.Columns
	}
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// toCSV yields an empty string for no rows.
func toCSV(columns []string, rows []map[string]any) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return "", err
	}
	record := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			record[i] = cell(r[c])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "\r\n", "<br>", "\n", "<br>")

// toMarkdown yields a single empty column table for no rows.
func toMarkdown(columns []string, rows []map[string]any) (string, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return "| |\n| --- |\n", nil
	}
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" " + markdownEscaper.Replace(c) + " |")
		}
		b.WriteString("\n")
	}

	writeRow(columns)
	b.WriteString("|")
	for range columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	cells := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			cells[i] = cell(r[c])
		}
		writeRow(cells)
	}
	return b.String(), nil
}

// toHTML yields a table with empty head and body for no rows.
func toHTML(columns []string, rows []map[string]any) (string, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return "<table>\n<thead></thead>\n<tbody></tbody>\n</table>\n", nil
	}
	var b strings.Builder
	b.WriteString("<table>\n<thead>\n<tr>")
	for _, c := range columns {
		b.WriteString("<th>" + html.EscapeString(c) + "</th>")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, c := range columns {
			b.WriteString("<td>" + html.EscapeString(cell(r[c])) + "</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
	return b.String(), nil
}

func toJSON(input any, rows []map[string]any) (string, error) {
	var v any = input
	if len(rows) == 0 {
		v = []any{}
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
