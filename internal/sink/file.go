package sink

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/pkg/utils"
)

// FileSink writes the value to a file under its root. The path comes
// from the "path" config or defaults to <pipeline>/<run>.<ext>.
type FileSink struct {
	out     *utils.OutputManager
	records Records
	logger  *zap.Logger
}

func NewFileSink(root string, records Records, logger *zap.Logger) *FileSink {
	return &FileSink{
		out:     utils.NewOutputManager(root),
		records: records,
		logger:  logger.Named("sink.file"),
	}
}

func (s *FileSink) Kind() model.OutputKind { return model.OutputFile }

func (s *FileSink) Persist(ctx context.Context, value any, cfg map[string]any, pc *model.PipelineContext) (Result, error) {
	p, err := encode(value, cfg, pc)
	if err != nil {
		return Result{}, s.fail("encode", err)
	}

	rel := cfgString(cfg, "path", s.out.RunFileName(pc.PipelineID, pc.RunID, p.ext))
	path, err := s.out.GetOutputFilePath(rel)
	if err != nil {
		return Result{}, s.fail("mkdir", err)
	}

	if err := os.WriteFile(path, p.data, 0o644); err != nil {
		return Result{}, s.fail("write", err)
	}

	size := int64(len(p.data))
	if s.records != nil && s.records.FileExists(path) {
		if n, err := s.records.StatSize(path); err == nil {
			size = n
		}
	}

	err = register(ctx, s.records, s.logger, store.Record{
		Key:         "file:" + s.out.Rel(path),
		Kind:        string(model.OutputFile),
		Location:    path,
		PipelineID:  pc.PipelineID,
		RunID:       pc.RunID,
		UserID:      pc.UserID,
		ContentType: p.contentType,
		Size:        size,
	})
	if err != nil {
		return Result{}, s.fail("register", err)
	}

	s.logger.Info("wrote output file",
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(size))),
	)
	return Result{Location: path, Kind: model.OutputFile}, nil
}

func (s *FileSink) fail(op string, err error) error {
	return fail(model.OutputFile, op, err)
}
