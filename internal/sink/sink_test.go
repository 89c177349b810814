package sink

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/pkg/metrics"
)

func newRecords(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Make(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func runContext(run string) *model.PipelineContext {
	return model.NewPipelineContext("u1", "demo", run)
}

func TestFileSinkWritesJSON(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	records := newRecords(t)
	s := NewFileSink(root, records, zap.NewNop())
	pc := runContext("r1")

	value := map[string]any{"category": "A", "summary": "short"}
	res, err := s.Persist(context.Background(), value, nil, pc)
	require.NoError(t, err)
	assert.Equal(t, model.OutputFile, res.Kind)
	assert.Equal(t, filepath.Join(root, "demo", "r1.json"), res.Location)

	raw, err := os.ReadFile(res.Location)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, value, got)

	rec, err := records.GetRecord(context.Background(), "file:"+filepath.Join("demo", "r1.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), rec.Size)
	assert.Equal(t, "application/json", rec.ContentType)
}

func TestFileSinkIsIdempotent(t *testing.T) {
	root := t.TempDir()
	s := NewFileSink(root, newRecords(t), zap.NewNop())
	pc := runContext("r1")

	first, err := s.Persist(context.Background(), "hello", nil, pc)
	require.NoError(t, err)
	second, err := s.Persist(context.Background(), "hello", nil, pc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first.Location, "r1.txt"))
	raw, err := os.ReadFile(second.Location)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))
}

func TestFileSinkUsesRecordedFormat(t *testing.T) {
	root := t.TempDir()
	s := NewFileSink(root, nil, zap.NewNop())
	pc := runContext("r1")
	pc.SetMetadata("format", "csv")

	res, err := s.Persist(context.Background(), "a,b\n1,2\n", nil, pc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "demo", "r1.csv"), res.Location)

	res, err = s.Persist(context.Background(), "# title", map[string]any{"path": "reports/latest.md"}, pc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "reports", "latest.md"), res.Location)
}

func TestFileSinkStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	s := NewFileSink(filepath.Join(root, "out"), nil, zap.NewNop())

	res, err := s.Persist(context.Background(), "x", map[string]any{"path": "../../escape.txt"}, runContext("r1"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Location, filepath.Join(root, "out")))
}

func TestModuleSinkVersions(t *testing.T) {
	root := t.TempDir()
	records := newRecords(t)
	s := NewModuleSink(root, records, zap.NewNop())
	cfg := map[string]any{"name": "report", "description": "weekly report"}

	first, err := s.Persist(context.Background(), map[string]any{"n": 1}, cfg, runContext("r1"))
	require.NoError(t, err)
	second, err := s.Persist(context.Background(), map[string]any{"n": 2}, cfg, runContext("r2"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "report", "v1"), first.Location)
	assert.Equal(t, filepath.Join(root, "report", "v2"), second.Location)

	mod, err := ReadModule(second.Location)
	require.NoError(t, err)
	assert.Equal(t, "report", mod.Manifest.Name)
	assert.Equal(t, 2, mod.Manifest.Version)
	assert.Equal(t, "r2", mod.Manifest.RunID)
	assert.Equal(t, "data.json", mod.Manifest.DataFile)
	assert.JSONEq(t, `{"n": 2}`, string(mod.Data))
	assert.Equal(t, int64(len(mod.Data)), mod.Manifest.Size)

	readme, err := os.ReadFile(filepath.Join(second.Location, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# report v2")
	assert.Contains(t, string(readme), "weekly report")

	_, err = records.GetRecord(context.Background(), "module:report/v2")
	assert.NoError(t, err)
}

func TestModuleSinkDefaultsToPipelineName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "demo", "v7"), 0o755))
	s := NewModuleSink(root, nil, zap.NewNop())

	res, err := s.Persist(context.Background(), "text body", nil, runContext("r1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "demo", "v8"), res.Location)

	mod, err := ReadModule(res.Location)
	require.NoError(t, err)
	assert.Equal(t, "data.txt", mod.Manifest.DataFile)
	assert.Equal(t, "text body", string(mod.Data))
}

func commitCount(t *testing.T, repo *git.Repository) int {
	t.Helper()
	iter, err := repo.Log(&git.LogOptions{})
	require.NoError(t, err)
	n := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	}))
	return n
}

func commitOf(t *testing.T, repo *git.Repository, location string) *object.Commit {
	t.Helper()
	_, hash, ok := strings.Cut(location, "#")
	require.True(t, ok, "location %q has no commit", location)
	c, err := repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	return c
}

func TestRepositorySinkInitOnceAndCommits(t *testing.T) {
	root := t.TempDir()
	records := newRecords(t)
	author := Author{Name: "Tester", Email: "tester@example.com"}

	first, err := NewRepositorySink(root, author, records, zap.NewNop()).
		Persist(context.Background(), map[string]any{"v": 1}, nil, runContext("r1"))
	require.NoError(t, err)
	assert.Equal(t, model.OutputRepository, first.Kind)

	// a fresh sink must reopen, not re-initialize
	second, err := NewRepositorySink(root, author, records, zap.NewNop()).
		Persist(context.Background(), map[string]any{"v": 1}, map[string]any{"message": "same content again", "path": "runs/r1.json"}, runContext("r2"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Location, second.Location)

	repo, err := git.PlainOpen(filepath.Join(root, "demo"))
	require.NoError(t, err)
	assert.Equal(t, 2, commitCount(t, repo))

	c1 := commitOf(t, repo, first.Location)
	c2 := commitOf(t, repo, second.Location)
	assert.Equal(t, "pipeline demo: run r1", c1.Message)
	assert.Equal(t, "same content again", c2.Message)
	assert.Equal(t, "Tester", c2.Author.Name)
	require.Len(t, c2.ParentHashes, 1)
	assert.Equal(t, c1.Hash, c2.ParentHashes[0])

	f, err := c1.File("runs/r1.json")
	require.NoError(t, err)
	body, err := f.Contents()
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": 1}`, body)
}

func TestRepositorySinkReusesExistingRepository(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "archive")
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	s := NewRepositorySink(root, Author{}, nil, zap.NewNop())
	_, err = s.Persist(context.Background(), "line", map[string]any{"repository": "archive"}, runContext("r1"))
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	c, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "pipeline-engine", c.Author.Name)
	_, err = c.File("runs/r1.txt")
	assert.NoError(t, err)
}

func TestRepositorySinkStagesConfinedPath(t *testing.T) {
	root := t.TempDir()
	records := newRecords(t)

	s := NewRepositorySink(root, Author{}, records, zap.NewNop())
	res, err := s.Persist(context.Background(), map[string]any{"v": 2}, map[string]any{"path": "../nested/../a.json"}, runContext("r1"))
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "a.json"))

	repo, err := git.PlainOpen(filepath.Join(root, "demo"))
	require.NoError(t, err)
	_, err = commitOf(t, repo, res.Location).File("a.json")
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), status.String())

	recs, err := records.ListRecords(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	info, err := os.Stat(filepath.Join(root, "demo", "a.json"))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), recs[0].Size)
}

func TestRepositorySinkReportsInitFailure(t *testing.T) {
	root := t.TempDir()
	// a regular file where the repository directory should be
	require.NoError(t, os.WriteFile(filepath.Join(root, "demo"), []byte("x"), 0o644))

	s := NewRepositorySink(root, Author{}, nil, zap.NewNop())
	_, err := s.Persist(context.Background(), "v", nil, runContext("r1"))
	require.Error(t, err)

	var se *SinkError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "init", se.Op)
	assert.Equal(t, model.OutputRepository, se.Kind)
	assert.ErrorIs(t, err, ErrSink)
	assert.NotContains(t, err.Error(), root)
}

func TestDatabaseSinkUpserts(t *testing.T) {
	records := newRecords(t)
	s := NewDatabaseSink(records, zap.NewNop())
	pc := runContext("r1")

	first, err := s.Persist(context.Background(), map[string]any{"a": 1}, nil, pc)
	require.NoError(t, err)
	assert.Equal(t, Result{Location: "demo/r1", Kind: model.OutputDatabase}, first)

	second, err := s.Persist(context.Background(), map[string]any{"a": 2}, nil, pc)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rec, err := records.GetRecord(context.Background(), "demo/r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 2}`, string(rec.Data))

	keyed, err := s.Persist(context.Background(), []any{1, 2}, map[string]any{"key": "latest"}, pc)
	require.NoError(t, err)
	assert.Equal(t, "latest", keyed.Location)
}

func TestDatabaseSinkWithoutStore(t *testing.T) {
	_, err := NewDatabaseSink(nil, zap.NewNop()).Persist(context.Background(), 1, nil, runContext("r1"))
	var se *SinkError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "write", se.Op)
}

func TestSetResolvesByKind(t *testing.T) {
	m := metrics.New()
	set := NewSet(m, NewFileSink(t.TempDir(), nil, zap.NewNop()))

	res, err := set.Persist(context.Background(), model.OutputSpec{Kind: model.OutputFile}, "x", runContext("r1"))
	require.NoError(t, err)
	assert.Equal(t, model.OutputFile, res.Kind)

	_, err = set.Persist(context.Background(), model.OutputSpec{Kind: model.OutputModule}, "x", runContext("r1"))
	assert.ErrorIs(t, err, ErrUnknownSink)
	assert.ErrorIs(t, err, ErrSink)
}
