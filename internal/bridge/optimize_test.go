package bridge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pipeline-engine/internal/resource"
)

func TestOptimizeForIsIdempotent(t *testing.T) {
	b, _ := newTestBridge(t, map[string]string{
		"work.sh": "#!/bin/sh\nprintf '\"%s\"' \"$PIPELINE_TIER\" > \"$2\"\n",
	})

	ref, err := b.OptimizeFor(resource.ConstrainedLocal, "work.sh")
	require.NoError(t, err)
	assert.Equal(t, "work.constrained-local.sh", ref)

	first, err := os.ReadFile(filepath.Join(b.cfg.ScriptDir, ref))
	require.NoError(t, err)

	_, err = b.OptimizeFor(resource.ConstrainedLocal, "work.sh")
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(b.cfg.ScriptDir, ref))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(string(first), "#!/bin/sh\n"+optimizedMarker+"constrained-local\n"))
	assert.Equal(t, 1, strings.Count(string(first), optimizedMarker))

	out, err := b.Execute(context.Background(), Request{Script: "work.sh", Tier: resource.ConstrainedLocal})
	require.NoError(t, err)
	assert.Equal(t, "constrained-local", out)

	entries, err := os.ReadDir(b.cfg.ScriptDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files left behind")
}

func TestAnnotateWithoutShebang(t *testing.T) {
	got := string(annotate([]byte("print(1)\n"), resource.Cloud))
	assert.True(t, strings.HasPrefix(got, optimizedMarker+"cloud\n"))
	assert.True(t, strings.HasSuffix(got, "print(1)\n"))
}

func TestOptimizeForMissingScript(t *testing.T) {
	b, _ := newTestBridge(t, nil)
	_, err := b.OptimizeFor(resource.Server, "nope.sh")
	assert.Error(t, err)
}
