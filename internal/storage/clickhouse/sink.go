package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
)

const Schema = `
CREATE TABLE IF NOT EXISTS dex_events (
	event_time   DateTime,
	kind         LowCardinality(String),
	id           String,
	tx_hash      String,
	log_index    UInt32,
	block_number UInt64,
	protocol     String,
	pool         String,
	sender       String,
	recipient    String,
	tokens       Array(String),
	amounts      Array(String),
	amount_usd   String
) ENGINE = ReplacingMergeTree
ORDER BY (kind, id)
`

// EventRow is one swap, deposit or withdraw as stored in ClickHouse.
type EventRow struct {
	EventTime   time.Time
	Kind        string
	ID          string
	TxHash      string
	LogIndex    uint32
	BlockNumber uint64
	Protocol    string
	Pool        string
	Sender      string
	Recipient   string
	Tokens      []string
	Amounts     []string
	AmountUSD   string
}

// Options tunes the sink retries.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Sink copies swap, deposit and withdraw writes of the wrapped store into ClickHouse.
// Rows are buffered until Flush.
type Sink struct {
	storage.Store
	conn driver.Conn
	opts Options

	mu   sync.Mutex
	rows []EventRow
}

// Open connects to ClickHouse using a DSN.
func Open(ctx context.Context, dsn string) (driver.Conn, error) {
	opts, err := ch.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	if opts.Compression == nil {
		opts.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}

	opts.ClientInfo = ch.ClientInfo{
		Products: []struct{ Name, Version string }{
			{
				Name:    "dexsubgraphs",
				Version: "0.1.0",
			},
		},
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err = conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	if err = conn.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("create clickhouse schema: %w", err)
	}

	return conn, nil
}

func NewSink(next storage.Store, conn driver.Conn, opts Options) *Sink {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 200 * time.Millisecond
	}
	return &Sink{Store: next, conn: conn, opts: opts}
}

func (s *Sink) Put(ctx context.Context, kind, id string, data []byte) error {
	if err := s.Store.Put(ctx, kind, id, data); err != nil {
		return err
	}
	row, ok, err := RowFromEntity(kind, data)
	if err != nil {
		return err
	}
	if ok {
		s.mu.Lock()
		s.rows = append(s.rows, row)
		s.mu.Unlock()
	}
	return nil
}

// Pending returns the number of rows waiting for Flush.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Flush flushes the wrapped store and then inserts buffered rows.
func (s *Sink) Flush(ctx context.Context) error {
	if err := storage.FlushIfBuffered(ctx, s.Store); err != nil {
		return err
	}

	s.mu.Lock()
	rows := s.rows
	s.rows = nil
	s.mu.Unlock()

	if err := s.insertBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert %d rows to clickhouse: %w", len(rows), err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Sink) insertBatch(ctx context.Context, rows []EventRow) error {
	if len(rows) == 0 || s.conn == nil {
		return nil
	}

	backoff := s.opts.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = s.sendOnce(ctx, rows)
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}

func (s *Sink) sendOnce(ctx context.Context, rows []EventRow) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO dex_events (
			event_time,
			kind,
			id,
			tx_hash,
			log_index,
			block_number,
			protocol,
			pool,
			sender,
			recipient,
			tokens,
			amounts,
			amount_usd
		)
	`)
	if err != nil {
		return err
	}

	for i := range rows {
		r := &rows[i]
		if err := batch.Append(
			r.EventTime,
			r.Kind,
			r.ID,
			r.TxHash,
			r.LogIndex,
			r.BlockNumber,
			r.Protocol,
			r.Pool,
			r.Sender,
			r.Recipient,
			r.Tokens,
			r.Amounts,
			r.AmountUSD,
		); err != nil {
			_ = batch.Abort()
			return err
		}
	}

	return batch.Send()
}

// RowFromEntity maps a stored entity to an event row. Kinds other than
// swaps, deposits and withdrawals report false.
func RowFromEntity(kind string, data []byte) (EventRow, bool, error) {
	switch kind {
	case model.KindSwap:
		var sw model.Swap
		if err := json.Unmarshal(data, &sw); err != nil {
			return EventRow{}, false, fmt.Errorf("decode swap: %w", err)
		}
		row := EventRow{
			EventTime:   time.Unix(int64(sw.Timestamp), 0).UTC(),
			Kind:        kind,
			ID:          sw.ID,
			TxHash:      sw.Hash,
			LogIndex:    uint32(sw.LogIndex),
			BlockNumber: sw.BlockNumber,
			Protocol:    sw.Protocol,
			Pool:        sw.Pool,
			Sender:      sw.From,
			Recipient:   sw.To,
			Tokens:      []string{sw.TokenIn, sw.TokenOut},
			Amounts:     []string{intString(sw.AmountIn), intString(sw.AmountOut)},
			AmountUSD:   sw.AmountInUSD.String(),
		}
		return row, true, nil
	case model.KindDeposit:
		var d model.Deposit
		if err := json.Unmarshal(data, &d); err != nil {
			return EventRow{}, false, fmt.Errorf("decode deposit: %w", err)
		}
		return liquidityRow(kind, d.ID, d.Hash, d.LogIndex, d.BlockNumber, d.Timestamp, d.Protocol, d.Pool,
			d.From, d.To, d.InputTokens, d.InputTokenAmounts, d.AmountUSD.String()), true, nil
	case model.KindWithdraw:
		var w model.Withdraw
		if err := json.Unmarshal(data, &w); err != nil {
			return EventRow{}, false, fmt.Errorf("decode withdraw: %w", err)
		}
		return liquidityRow(kind, w.ID, w.Hash, w.LogIndex, w.BlockNumber, w.Timestamp, w.Protocol, w.Pool,
			w.From, w.To, w.InputTokens, w.InputTokenAmounts, w.AmountUSD.String()), true, nil
	}
	return EventRow{}, false, nil
}

func liquidityRow(
	kind, id, hash string,
	logIndex, block, ts uint64,
	protocol, pool, from, to string,
	tokens []string,
	amounts []*big.Int,
	usd string,
) EventRow {
	values := make([]string, len(amounts))
	for i, a := range amounts {
		values[i] = intString(a)
	}
	return EventRow{
		EventTime:   time.Unix(int64(ts), 0).UTC(),
		Kind:        kind,
		ID:          id,
		TxHash:      hash,
		LogIndex:    uint32(logIndex),
		BlockNumber: block,
		Protocol:    protocol,
		Pool:        pool,
		Sender:      from,
		Recipient:   to,
		Tokens:      append([]string(nil), tokens...),
		Amounts:     values,
		AmountUSD:   usd,
	}
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
