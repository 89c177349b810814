package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/pkg/utils"
)

const manifestFile = "module.yaml"

// Manifest describes one generated module version.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     int    `yaml:"version"`
	Description string `yaml:"description,omitempty"`
	PipelineID  string `yaml:"pipeline_id"`
	RunID       string `yaml:"run_id"`
	UserID      string `yaml:"user_id,omitempty"`
	CreatedAt   string `yaml:"created_at"`
	DataFile    string `yaml:"data_file"`
	ContentType string `yaml:"content_type"`
	Size        int64  `yaml:"size"`
}

// Module is a generated module read back from disk.
type Module struct {
	Dir      string
	Manifest Manifest
	Data     []byte
}

// ModuleSink writes the value as a versioned module directory:
//
//	<root>/<name>/v<N>/module.yaml
//	<root>/<name>/v<N>/data.<ext>
//	<root>/<name>/v<N>/README.md
//
// Every call creates the next version.
type ModuleSink struct {
	out     *utils.OutputManager
	records Records
	logger  *zap.Logger
	mu      sync.Mutex
}

func NewModuleSink(root string, records Records, logger *zap.Logger) *ModuleSink {
	return &ModuleSink{
		out:     utils.NewOutputManager(root),
		records: records,
		logger:  logger.Named("sink.module"),
	}
}

func (s *ModuleSink) Kind() model.OutputKind { return model.OutputModule }

func (s *ModuleSink) Persist(ctx context.Context, value any, cfg map[string]any, pc *model.PipelineContext) (Result, error) {
	p, err := encode(value, cfg, pc)
	if err != nil {
		return Result{}, fail(model.OutputModule, "encode", err)
	}

	name := cfgString(cfg, "name", pc.PipelineID)
	base, err := s.out.CreateDir(name)
	if err != nil {
		return Result{}, fail(model.OutputModule, "mkdir", err)
	}

	s.mu.Lock()
	dir, version, err := nextVersionDir(base)
	s.mu.Unlock()
	if err != nil {
		return Result{}, fail(model.OutputModule, "version", err)
	}

	m := Manifest{
		Name:        name,
		Version:     version,
		Description: cfgString(cfg, "description", ""),
		PipelineID:  pc.PipelineID,
		RunID:       pc.RunID,
		UserID:      pc.UserID,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		DataFile:    "data." + p.ext,
		ContentType: p.contentType,
		Size:        int64(len(p.data)),
	}

	if err := os.WriteFile(filepath.Join(dir, m.DataFile), p.data, 0o644); err != nil {
		return Result{}, fail(model.OutputModule, "write", err)
	}

	manifest, err := yaml.Marshal(&m)
	if err != nil {
		return Result{}, fail(model.OutputModule, "manifest", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), manifest, 0o644); err != nil {
		return Result{}, fail(model.OutputModule, "manifest", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme(m)), 0o644); err != nil {
		return Result{}, fail(model.OutputModule, "write", err)
	}

	err = register(ctx, s.records, s.logger, store.Record{
		Key:         fmt.Sprintf("module:%s/v%d", name, version),
		Kind:        string(model.OutputModule),
		Location:    dir,
		PipelineID:  pc.PipelineID,
		RunID:       pc.RunID,
		UserID:      pc.UserID,
		ContentType: p.contentType,
		Size:        m.Size,
	})
	if err != nil {
		return Result{}, fail(model.OutputModule, "register", err)
	}

	s.logger.Info("generated module",
		zap.String("name", name),
		zap.Int("version", version),
		zap.String("size", humanize.Bytes(uint64(m.Size))),
	)
	return Result{Location: dir, Kind: model.OutputModule}, nil
}

var versionDir = regexp.MustCompile(`^v([0-9]+)$`)

// nextVersionDir creates v<N+1> under base, where N is the highest
// existing version. Mkdir fails on an existing directory, so a version
// taken by another process is skipped rather than overwritten.
func nextVersionDir(base string) (string, int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", 0, err
	}

	latest := 0
	for _, e := range entries {
		m := versionDir.FindStringSubmatch(e.Name())
		if !e.IsDir() || m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > latest {
			latest = n
		}
	}

	for v := latest + 1; ; v++ {
		dir := filepath.Join(base, "v"+strconv.Itoa(v))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, v, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", 0, err
		}
	}
}

func readme(m Manifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s v%d\n\n", m.Name, m.Version)
	if m.Description != "" {
		b.WriteString(m.Description + "\n\n")
	}
	fmt.Fprintf(&b, "Generated by pipeline `%s` (run `%s`) at %s.\n\n", m.PipelineID, m.RunID, m.CreatedAt)
	fmt.Fprintf(&b, "Data: `%s` (%s, %s)\n", m.DataFile, m.ContentType, humanize.Bytes(uint64(m.Size)))
	return b.String()
}

// ReadModule loads a module version written by ModuleSink.
func ReadModule(dir string) (*Module, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	mod := &Module{Dir: dir}
	if err := yaml.Unmarshal(raw, &mod.Manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	dataPath, err := securejoin.SecureJoin(dir, mod.Manifest.DataFile)
	if err != nil {
		return nil, err
	}
	mod.Data, err = os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return mod, nil
}
