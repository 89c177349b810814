package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-pipeline-engine/internal/bridge"
	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/sink"
	"go-pipeline-engine/internal/steps"
	"go-pipeline-engine/internal/textgen"
	"go-pipeline-engine/pkg/metrics"
)

type fakeStep struct {
	id  string
	run func(ctx context.Context, input any, pc *model.PipelineContext) (any, error)
}

func (s *fakeStep) ID() string             { return s.id }
func (s *fakeStep) Name() string           { return s.id }
func (s *fakeStep) Kind() model.StepKind   { return model.StepKindTransform }
func (s *fakeStep) Config() map[string]any { return nil }
func (s *fakeStep) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	return s.run(ctx, input, pc)
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []*model.PipelineResult
}

func (r *fakeRecorder) SaveRun(_ context.Context, res *model.PipelineResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, res)
	return nil
}

type failingSinks struct{ err error }

func (f failingSinks) Persist(context.Context, model.OutputSpec, any, *model.PipelineContext) (sink.Result, error) {
	return sink.Result{}, f.err
}

func scratchFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("{}"), 0o600))
	return p
}

func TestRunStopsAtFailingStep(t *testing.T) {
	scratch := t.TempDir()
	thirdRan := false
	p := &model.Pipeline{
		ID: "three",
		Steps: []model.Step{
			&fakeStep{id: "one", run: func(_ context.Context, in any, pc *model.PipelineContext) (any, error) {
				pc.RegisterTempFile(scratchFile(t, scratch, "one.json"))
				return in, nil
			}},
			&fakeStep{id: "two", run: func(_ context.Context, _ any, pc *model.PipelineContext) (any, error) {
				pc.RegisterTempFile(scratchFile(t, scratch, "two.json"))
				pc.RegisterTempFile(filepath.Join(scratch, "never-created.json"))
				return nil, errors.New("boom")
			}},
			&fakeStep{id: "three", run: func(_ context.Context, in any, _ *model.PipelineContext) (any, error) {
				thirdRan = true
				return in, nil
			}},
		},
	}

	rec := &fakeRecorder{}
	m := metrics.New()
	e := NewExecutor(NewRegistry(), nil, WithRecorder(rec), WithMetrics(m))
	res := e.Run(context.Background(), p, "u1", "input")

	assert.False(t, res.Success)
	assert.False(t, thirdRan)
	assert.Equal(t, `step "two": boom`, res.Error)
	assert.Empty(t, res.OutputLocation)
	assert.Nil(t, res.Result)
	assert.Equal(t, []string{
		"step 1/3 one: started",
		"step 2/3 two: started",
		"step 2/3 two: failed: boom",
	}, res.Logs)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files leaked")

	require.Len(t, rec.runs, 1)
	assert.Same(t, res, rec.runs[0])
}

func TestRunWithScriptBridgeLeavesNoScratch(t *testing.T) {
	scripts := t.TempDir()
	scratch := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "fail.sh"), []byte("echo broken >&2\nexit 1\n"), 0o755))

	br := bridge.New(bridge.Config{Interpreter: "sh", ScriptDir: scripts, ScratchDir: scratch}, zap.NewNop(), nil)
	def := Definition{
		ID: "bridged",
		Steps: []steps.Spec{
			{ID: "analyze", Type: "analyze"},
			{ID: "process", Type: "script", Config: map[string]any{"script": "fail.sh", "tier": "server"}},
			{ID: "summarize", Type: "summarize"},
		},
	}
	p, err := Build(def, steps.Deps{Generator: textgen.Local{}, Scripts: br})
	require.NoError(t, err)

	res := NewExecutor(NewRegistry(), nil).Run(context.Background(), p, "", "Hello world. Second sentence.")

	assert.False(t, res.Success)
	require.Len(t, res.Logs, 3)
	assert.Equal(t, "step 1/3 analyze: started", res.Logs[0])
	assert.Equal(t, "step 2/3 process: started", res.Logs[1])
	assert.True(t, strings.HasPrefix(res.Logs[2], "step 2/3 process: failed: "), res.Logs[2])
	assert.NotContains(t, res.Error, "broken")
	assert.NotContains(t, res.Error, scratch)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunRefusesFileInputOutsideRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("kept"), 0o644))

	p := &model.Pipeline{
		ID:    "reader",
		Input: model.InputSpec{Kind: model.InputFile},
		Steps: []model.Step{&fakeStep{id: "echo", run: func(_ context.Context, in any, _ *model.PipelineContext) (any, error) {
			return in, nil
		}}},
	}
	e := NewExecutor(NewRegistry(), nil, WithInputLoader(&InputLoader{FileRoot: root}))

	res := e.Run(context.Background(), p, "", "/etc/hostname")
	assert.False(t, res.Success)
	assert.Nil(t, res.Result)
	assert.Equal(t, "input: "+errFileOutsideRoot.Error(), res.Error)

	res = NewExecutor(NewRegistry(), nil).Run(context.Background(), p, "", "/etc/hostname")
	assert.False(t, res.Success)
	assert.Nil(t, res.Result)
}

func TestRunScriptFailureHidesTracebackAndPaths(t *testing.T) {
	scripts := t.TempDir()
	traceback := "echo 'Traceback (most recent call last):' >&2\n" +
		"echo '  File \"'\"$0\"'\", line 3, in <module>' >&2\n" +
		"echo 'ValueError: x' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "boom.sh"), []byte(traceback), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "noexec.sh"), []byte("exit 0\n"), 0o644))

	tests := []struct {
		name        string
		interpreter string
		script      string
	}{
		{"traceback on stderr", "sh", "boom.sh"},
		{"not executable", "", "noexec.sh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := bridge.New(bridge.Config{Interpreter: tt.interpreter, ScriptDir: scripts, ScratchDir: t.TempDir()}, zap.NewNop(), nil)
			p, err := Build(Definition{
				ID:    "scripted",
				Steps: []steps.Spec{{ID: "s", Type: "script", Config: map[string]any{"script": tt.script, "tier": "server"}}},
			}, steps.Deps{Scripts: br})
			require.NoError(t, err)

			res := NewExecutor(NewRegistry(), nil).Run(context.Background(), p, "", "x")
			require.False(t, res.Success)
			assert.True(t, strings.HasPrefix(res.Error, `step "s": script execution failed: `+tt.script), res.Error)
			for _, text := range append([]string{res.Error}, res.Logs...) {
				assert.NotContains(t, text, scripts)
				assert.NotContains(t, text, "Traceback")
			}
		})
	}
}

func newDemoExecutor(t *testing.T, out string) (*Executor, *Registry) {
	t.Helper()
	defs, err := BuiltinDefinitions()
	require.NoError(t, err)

	reg := NewRegistry()
	var demo []Definition
	for _, d := range defs {
		if d.ID == "demo" {
			demo = append(demo, d)
		}
	}
	require.Len(t, demo, 1)
	require.NoError(t, RegisterDefinitions(reg, demo, steps.Deps{Generator: textgen.Local{}}))
	reg.Freeze()

	sinks := sink.NewSet(nil, sink.NewFileSink(out, nil, zap.NewNop()))
	return NewExecutor(reg, sinks), reg
}

func TestExecuteDemo(t *testing.T) {
	out := t.TempDir()
	e, _ := newDemoExecutor(t, out)

	res, err := e.Execute(context.Background(), "demo", "u1", "some long text about A")
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	value, ok := res.Result.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, []string{"A", "B"}, value["category"])
	summary, _ := value["summary"].(string)
	assert.LessOrEqual(t, utf8.RuneCountInString(summary), 50)

	assert.Equal(t, model.OutputFile, res.OutputKind)
	assert.FileExists(t, res.OutputLocation)
	assert.Equal(t, []string{
		"step 1/2 classify: started",
		"step 2/2 summarize: started",
		"output: file " + res.OutputLocation,
	}, res.Logs)

	timings, ok := res.Metadata["step_timings_ms"].(map[string]int64)
	require.True(t, ok)
	assert.Contains(t, timings, "classify")
	assert.Contains(t, timings, "summarize")
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
	assert.False(t, res.EndedAt.Before(res.StartedAt))
}

func TestExecuteUnknownPipeline(t *testing.T) {
	e, _ := newDemoExecutor(t, t.TempDir())
	res, err := e.Execute(context.Background(), "nope", "u1", "x")
	assert.ErrorIs(t, err, ErrPipelineNotFound)
	assert.Nil(t, res)
}

func TestSinkFailureFailsRun(t *testing.T) {
	p := &model.Pipeline{
		ID:     "p",
		Output: model.OutputSpec{Kind: model.OutputRepository},
		Steps: []model.Step{&fakeStep{id: "pass", run: func(_ context.Context, in any, _ *model.PipelineContext) (any, error) {
			return in, nil
		}}},
	}
	sinkErr := &sink.SinkError{Kind: model.OutputRepository, Op: "commit", Err: errors.New("locked")}
	res := NewExecutor(NewRegistry(), failingSinks{err: sinkErr}).Run(context.Background(), p, "", "x")

	assert.False(t, res.Success)
	assert.Equal(t, "repository sink: commit: locked", res.Error)
	assert.Equal(t, []string{
		"step 1/1 pass: started",
		"output: failed: repository sink: commit: locked",
	}, res.Logs)
}

func TestInputValidationFailsRun(t *testing.T) {
	p := &model.Pipeline{
		ID: "p",
		Input: model.InputSpec{
			Kind:       model.InputText,
			Validation: &model.ValidationRules{RequiredFields: []string{"name"}},
		},
		Steps: []model.Step{&fakeStep{id: "pass", run: func(_ context.Context, in any, _ *model.PipelineContext) (any, error) {
			return in, nil
		}}},
	}
	res := NewExecutor(NewRegistry(), nil).Run(context.Background(), p, "", map[string]any{"age": 3.0})

	assert.False(t, res.Success)
	assert.Equal(t, "input: missing required field: name", res.Error)
	assert.Equal(t, []string{"input: failed: missing required field: name"}, res.Logs)
}

func TestCancelledContextFailsNextStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &model.Pipeline{
		ID: "p",
		Steps: []model.Step{
			&fakeStep{id: "first", run: func(_ context.Context, in any, _ *model.PipelineContext) (any, error) {
				cancel()
				return in, nil
			}},
			&fakeStep{id: "second", run: func(_ context.Context, in any, _ *model.PipelineContext) (any, error) {
				t.Fatal("second step must not run")
				return nil, nil
			}},
		},
	}
	res := NewExecutor(NewRegistry(), nil).Run(ctx, p, "", "x")

	assert.False(t, res.Success)
	assert.Equal(t, "step 2/2 second: failed: context canceled", res.Logs[len(res.Logs)-1])
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	e, _ := newDemoExecutor(t, t.TempDir())

	const runs = 16
	results := make([]*model.PipelineResult, runs)
	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Execute(context.Background(), "demo", "u", "Plan B wins. Plan A loses.")
			if err == nil {
				results[i] = res
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, res := range results {
		require.NotNil(t, res)
		assert.True(t, res.Success, res.Error)
		assert.Len(t, res.Logs, 3)
		assert.False(t, seen[res.RunID])
		seen[res.RunID] = true
	}
}
