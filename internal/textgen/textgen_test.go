package textgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalReturnsLeadingSentences(t *testing.T) {
	prompt := Prompt("Summarize:", "First one. Second\nline!  Third? Fourth.")

	got, err := Local{MaxSentences: 2}.Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "First one. Second line!", got)

	got, err = Local{}.Generate(context.Background(), "no separator here")
	require.NoError(t, err)
	assert.Equal(t, "no separator here", got)
}

func TestLocalHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Local{}.Generate(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPGenerate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"text field", `{"text": "  A  "}`, "A"},
		{"generated_text list", `[{"generated_text": "B"}]`, "B"},
		{"plain body", "category: A\n", "category: A"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got completionRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewHTTP(srv.URL, "tok", time.Second)
			out, err := g.Generate(context.Background(), "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, "hello", got.Prompt)
		})
	}
}

func TestHTTPGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, "", time.Second).Generate(context.Background(), "x")
	assert.ErrorContains(t, err, "503")
}
