package sink

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/store"
)

var errNoRecords = errors.New("no record store configured")

// DatabaseSink stores the value as a record. The key comes from the "key"
// config or defaults to <pipeline>/<run>; writing the same key again
// replaces the record.
type DatabaseSink struct {
	records Records
	logger  *zap.Logger
}

func NewDatabaseSink(records Records, logger *zap.Logger) *DatabaseSink {
	return &DatabaseSink{records: records, logger: logger.Named("sink.database")}
}

func (s *DatabaseSink) Kind() model.OutputKind { return model.OutputDatabase }

func (s *DatabaseSink) Persist(ctx context.Context, value any, cfg map[string]any, pc *model.PipelineContext) (Result, error) {
	if s.records == nil {
		return Result{}, fail(model.OutputDatabase, "write", errNoRecords)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return Result{}, fail(model.OutputDatabase, "encode", err)
	}

	key := cfgString(cfg, "key", pc.PipelineID+"/"+pc.RunID)
	rec, err := s.records.CreateRecord(ctx, store.Record{
		Key:         key,
		Kind:        string(model.OutputDatabase),
		PipelineID:  pc.PipelineID,
		RunID:       pc.RunID,
		UserID:      pc.UserID,
		ContentType: "application/json",
		Size:        int64(len(data)),
		Data:        data,
	})
	if err != nil {
		return Result{}, fail(model.OutputDatabase, "write", err)
	}

	s.logger.Debug("stored record", zap.String("key", rec.Key), zap.String("id", rec.ID))
	return Result{Location: rec.Key, Kind: model.OutputDatabase}, nil
}
