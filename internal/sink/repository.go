package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/dustin/go-humanize"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/pkg/utils"
)

// Author signs repository commits.
type Author struct {
	Name  string
	Email string
}

// RepositorySink commits the value into a git repository under its root.
// The repository is initialized on first use and reopened afterwards;
// every call creates a new commit, even when the content is unchanged.
//
// Config: "repository" (default: pipeline id), "path" inside the
// repository (default: runs/<run>.<ext>), "message".
type RepositorySink struct {
	out     *utils.OutputManager
	author  Author
	records Records
	logger  *zap.Logger
	mu      sync.Mutex
}

func NewRepositorySink(root string, author Author, records Records, logger *zap.Logger) *RepositorySink {
	if author.Name == "" {
		author.Name = "pipeline-engine"
	}
	if author.Email == "" {
		author.Email = "pipeline-engine@localhost"
	}
	return &RepositorySink{
		out:     utils.NewOutputManager(root),
		author:  author,
		records: records,
		logger:  logger.Named("sink.repository"),
	}
}

func (s *RepositorySink) Kind() model.OutputKind { return model.OutputRepository }

func (s *RepositorySink) Persist(ctx context.Context, value any, cfg map[string]any, pc *model.PipelineContext) (Result, error) {
	p, err := encode(value, cfg, pc)
	if err != nil {
		return Result{}, fail(model.OutputRepository, "encode", err)
	}

	name := cfgString(cfg, "repository", pc.PipelineID)
	rel := filepath.ToSlash(cfgString(cfg, "path", filepath.Join("runs", pc.RunID+"."+p.ext)))
	message := cfgString(cfg, "message", fmt.Sprintf("pipeline %s: run %s", pc.PipelineID, pc.RunID))

	// one writer per sink; the worktree and index are not safe for
	// concurrent commits
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.out.CreateDir(name)
	if err != nil {
		return Result{}, fail(model.OutputRepository, "init", err)
	}
	repo, err := s.open(dir)
	if err != nil {
		return Result{}, fail(model.OutputRepository, "init", err)
	}

	target, err := securejoin.SecureJoin(dir, rel)
	if err != nil {
		return Result{}, fail(model.OutputRepository, "write", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Result{}, fail(model.OutputRepository, "write", err)
	}
	if err := os.WriteFile(target, p.data, 0o644); err != nil {
		return Result{}, fail(model.OutputRepository, "write", err)
	}

	size, err := s.out.GetFileSize(target)
	if err != nil {
		return Result{}, fail(model.OutputRepository, "write", err)
	}

	// stage the confined path; rel may still contain ".." segments
	staged, err := filepath.Rel(dir, target)
	if err != nil {
		return Result{}, fail(model.OutputRepository, "stage", err)
	}
	staged = filepath.ToSlash(staged)

	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, fail(model.OutputRepository, "stage", err)
	}
	if _, err := wt.Add(staged); err != nil {
		return Result{}, fail(model.OutputRepository, "stage", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  s.author.Name,
			Email: s.author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return Result{}, fail(model.OutputRepository, "commit", err)
	}

	location := dir + "#" + hash.String()
	err = register(ctx, s.records, s.logger, store.Record{
		Key:         fmt.Sprintf("repository:%s#%s", name, hash),
		Kind:        string(model.OutputRepository),
		Location:    location,
		PipelineID:  pc.PipelineID,
		RunID:       pc.RunID,
		UserID:      pc.UserID,
		ContentType: p.contentType,
		Size:        size,
	})
	if err != nil {
		return Result{}, fail(model.OutputRepository, "register", err)
	}

	s.logger.Info("committed output",
		zap.String("repository", name),
		zap.String("path", staged),
		zap.String("commit", hash.String()),
		zap.String("size", humanize.Bytes(uint64(size))),
	)
	return Result{Location: location, Kind: model.OutputRepository}, nil
}

// open returns the repository at dir, initializing it if there is none.
func (s *RepositorySink) open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, err
	}

	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("initialized repository", zap.String("dir", dir))
	return repo, nil
}
