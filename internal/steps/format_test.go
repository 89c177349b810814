package steps

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pipeline-engine/internal/model"
)

func runFormat(t *testing.T, format string, input any) (string, *model.PipelineContext) {
	t.Helper()
	s := newStep(t, "format", map[string]any{"format": format}, Deps{})
	pc := testContext()
	out, err := s.Execute(context.Background(), input, pc)
	require.NoError(t, err)
	return out.(string), pc
}

func TestFormatEmptyArray(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"csv", ""},
		{"markdown", "| |\n| --- |\n"},
		{"html", "<table>\n<thead></thead>\n<tbody></tbody>\n</table>\n"},
		{"json", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, pc := runFormat(t, tt.format, []any{})
			assert.Equal(t, tt.want, out)
			got, _ := pc.GetMetadata("format")
			assert.Equal(t, tt.format, got)
		})
	}
}

func tricky() []any {
	return []any{
		map[string]any{"name": `Smith, "Jo"`, "note": "a|b", "score": 1.5},
		map[string]any{"name": "<b>&co</b>", "note": "line1\nline2", "score": 2.0, "extra": true},
	}
}

func TestFormatCSVEscaping(t *testing.T) {
	out, _ := runFormat(t, "csv", tricky())

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"extra", "name", "note", "score"},
		{"", `Smith, "Jo"`, "a|b", "1.5"},
		{"true", "<b>&co</b>", "line1\nline2", "2"},
	}, rows)
}

func TestFormatMarkdownEscaping(t *testing.T) {
	out, _ := runFormat(t, "markdown", tricky())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "| extra | name | note | score |", lines[0])
	assert.Equal(t, "| --- | --- | --- | --- |", lines[1])
	assert.Equal(t, `|  | Smith, "Jo" | a\|b | 1.5 |`, lines[2])
	assert.Equal(t, "| true | <b>&co</b> | line1<br>line2 | 2 |", lines[3])
}

func TestFormatHTMLEscaping(t *testing.T) {
	out, pc := runFormat(t, "html", tricky())

	assert.Contains(t, out, "<td>&lt;b&gt;&amp;co&lt;/b&gt;</td>")
	assert.Contains(t, out, "<td>Smith, &#34;Jo&#34;</td>")
	assert.Contains(t, out, "<th>extra</th><th>name</th><th>note</th><th>score</th>")
	assert.Equal(t, 2, strings.Count(out, "<tr><td>"))
	ct, _ := pc.GetMetadata("content_type")
	assert.Equal(t, "text/html", ct)
}

func TestFormatSingleObjectAndColumns(t *testing.T) {
	s := newStep(t, "format", map[string]any{"format": "csv", "columns": []any{"b", "a"}}, Deps{})
	out, err := s.Execute(context.Background(), map[string]any{"a": 1.0, "b": "x", "c": "skip"}, testContext())
	require.NoError(t, err)
	assert.Equal(t, "b,a\nx,1\n", out)
}

func TestFormatRejectsNonObjects(t *testing.T) {
	s := newStep(t, "format", map[string]any{"format": "html"}, Deps{})
	for _, in := range []any{"text", 3.0, []any{1.0, 2.0}} {
		_, err := s.Execute(context.Background(), in, testContext())
		assert.ErrorIs(t, err, model.ErrInvalidInputType)
	}

	_, err := New(Spec{Type: "format", Config: map[string]any{"format": "pdf"}}, Deps{})
	assert.Error(t, err)
}
