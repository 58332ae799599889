package indexer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

var errMissingTopic0 = errors.New("missing topic0")

// ErrorSink receives one DecodeError per record that could not be replayed.
// *storage.JSONLines implements it.
type ErrorSink interface {
	Append(values ...any) error
}

// ReplayStats counts what a replay did with its input lines.
type ReplayStats struct {
	Total   int
	Handled int
	Skipped int
	Failed  int
}

// Replay feeds JSONL log records from in through the router in file order.
// Records that do not parse or decode go to errs; handler errors abort the replay.
func Replay(ctx context.Context, in io.Reader, router *subgraph.Router, env *subgraph.Env, errs ErrorSink, logger *zap.Logger) (ReplayStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats ReplayStats
	fail := func(e model.DecodeError) error {
		stats.Failed++
		logger.Debug("replay record failed", zap.Int("line", e.Line), zap.String("tx_hash", e.TxHash), zap.Uint64("log_index", e.LogIndex), zap.String("error", e.Error))
		if errs == nil {
			return nil
		}
		return errs.Append(e)
	}

	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			if err := fail(model.NewDecodeError(lineNo, model.StageParse, record, err)); err != nil {
				return stats, err
			}
			continue
		}
		if len(record.Topics) == 0 {
			if err := fail(model.NewDecodeError(lineNo, model.StageParse, record, errMissingTopic0)); err != nil {
				return stats, err
			}
			continue
		}

		ok, err := router.Handle(ctx, env, record)
		switch {
		case errors.Is(err, subgraph.ErrDecode):
			if err := fail(model.NewDecodeError(lineNo, model.StageDecode, record, err)); err != nil {
				return stats, err
			}
		case err != nil:
			return stats, err
		case ok:
			stats.Handled++
		default:
			stats.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	if err := storage.FlushIfBuffered(ctx, env.Store); err != nil {
		return stats, fmt.Errorf("flush store: %w", err)
	}

	logger.Info("replay complete",
		zap.Int("total", stats.Total),
		zap.Int("handled", stats.Handled),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
