package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"dexsubgraphs/internal/chain"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

var runnerTestABI = dex.NewLazyABI(`[
  {"anonymous": false, "name": "Created", "type": "event", "inputs": [
    {"indexed": true, "name": "child", "type": "address"}
  ]},
  {"anonymous": false, "name": "Ping", "type": "event", "inputs": [
    {"indexed": false, "name": "value", "type": "uint256"}
  ]}
]`)

var (
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	childAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type fakeChain struct {
	logs        []types.Log
	latest      uint64
	filterCalls int
	failFilter  int
}

func (f *fakeChain) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("execution reverted")
}

func (f *fakeChain) GetChainID(context.Context) (*big.Int, error) { return big.NewInt(56), nil }

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) { return f.latest, nil }

func (f *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1_600_000_000 + number, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, from, to uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	f.filterCalls++
	if f.failFilter > 0 {
		f.failFilter--
		return nil, errors.New("rate limited")
	}
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if !containsAddress(addresses, log.Address) || !containsHash(topic0, log.Topics[0]) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (f *fakeChain) Transaction(_ context.Context, hash common.Hash) (chain.TxInfo, error) {
	return chain.TxInfo{From: "0x00000000000000000000000000000000000000aa", Input: "0x" + hash.Hex()[2:10]}, nil
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, v := range list {
		if v == h {
			return true
		}
	}
	return false
}

// ping is the entity the test handlers write.
type ping struct {
	ID     string `json:"id"`
	Value  int64  `json:"value"`
	Block  uint64 `json:"block"`
	TxFrom string `json:"txFrom"`
}

func (p *ping) EntityKind() string { return "Ping" }
func (p *ping) EntityID() string   { return p.ID }

func createdLog(block uint64, index uint, child common.Address) types.Log {
	event := runnerTestABI.Must().Events["Created"]
	return types.Log{
		Address:     factoryAddr,
		Topics:      []common.Hash{event.ID, common.BytesToHash(child.Bytes())},
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Index:       index,
	}
}

func pingLog(block uint64, index uint, value int64) types.Log {
	event := runnerTestABI.Must().Events["Ping"]
	data, _ := event.Inputs.NonIndexed().Pack(big.NewInt(value))
	return types.Log{
		Address:     childAddr,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Index:       index,
	}
}

func newTestRouter(t *testing.T) *subgraph.Router {
	t.Helper()
	r := subgraph.NewRouter(nil)
	if err := r.Register(&subgraph.DataSource{
		Name:       "Factory",
		ABI:        runnerTestABI,
		Addresses:  []common.Address{factoryAddr},
		StartBlock: 100,
		Handlers: map[string]subgraph.Handler{
			"Created": func(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
				return env.Create(ev, "Child", ev.Args.Address("child"))
			},
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.RegisterTemplate(&subgraph.DataSource{
		Name: "Child",
		ABI:  runnerTestABI,
		Handlers: map[string]subgraph.Handler{
			"Ping": func(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
				p := &ping{ID: ev.ID(), Value: ev.Args.BigInt("value").Int64(), Block: ev.Block.Number, TxFrom: ev.Tx.From}
				if err := ev.Args.Err(); err != nil {
					return err
				}
				return storage.Save(ctx, env.Store, p)
			},
		},
		NeedsTx: true,
	}); err != nil {
		t.Fatalf("register template: %v", err)
	}
	return r
}

func loadPings(t *testing.T, store storage.Store) []*ping {
	t.Helper()
	pings, err := storage.LoadAll[ping](context.Background(), store, 0)
	if err != nil {
		t.Fatalf("load pings: %v", err)
	}
	return pings
}

func TestRunnerPicksUpCreatedSources(t *testing.T) {
	fc := &fakeChain{
		latest: 110,
		logs: []types.Log{
			// a ping before the child exists is not indexed
			pingLog(101, 0, 1),
			createdLog(102, 0, childAddr),
			pingLog(102, 1, 2),
			pingLog(107, 0, 3),
		},
	}
	store := storage.NewMemory()
	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	checkpoint := NewCheckpointStore(cpPath, true)
	archive := storage.NewJSONLines(filepath.Join(t.TempDir(), "logs.jsonl"))

	runner := NewRunner(RunConfig{BatchSize: 20}, fc, newTestRouter(t), store, checkpoint, archive, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	pings := loadPings(t, store)
	if len(pings) != 2 {
		t.Fatalf("expected 2 pings, got %d", len(pings))
	}
	values := map[int64]*ping{}
	for _, p := range pings {
		values[p.Value] = p
	}
	if values[2] == nil || values[3] == nil {
		t.Fatalf("unexpected pings %+v", pings)
	}
	if values[2].TxFrom != "0x00000000000000000000000000000000000000aa" {
		t.Fatalf("transaction sender not attached: %q", values[2].TxFrom)
	}
	// one fetch for the batch, one more after the child was created
	if fc.filterCalls != 2 {
		t.Fatalf("expected 2 log fetches, got %d", fc.filterCalls)
	}

	last, ok, err := checkpoint.Load(context.Background())
	if err != nil || !ok || last != 110 {
		t.Fatalf("unexpected checkpoint %d %v %v", last, ok, err)
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	fc := &fakeChain{latest: 105, logs: []types.Log{createdLog(102, 0, childAddr)}}
	checkpoint := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"), true)
	if err := checkpoint.Save(context.Background(), 105); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}
	runner := NewRunner(RunConfig{BatchSize: 10}, fc, newTestRouter(t), storage.NewMemory(), checkpoint, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fc.filterCalls != 0 {
		t.Fatalf("expected no fetches, got %d", fc.filterCalls)
	}
}

func TestRunnerRetriesFilter(t *testing.T) {
	fc := &fakeChain{latest: 103, failFilter: 2, logs: []types.Log{createdLog(102, 0, childAddr), pingLog(103, 0, 9)}}
	store := storage.NewMemory()
	runner := NewRunner(RunConfig{BatchSize: 10, MaxRetries: 3, RetryBackoff: 1}, fc, newTestRouter(t), store, nil, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(loadPings(t, store)); got != 1 {
		t.Fatalf("expected 1 ping, got %d", got)
	}
}

func TestRunnerRequiresDataSources(t *testing.T) {
	runner := NewRunner(RunConfig{BatchSize: 10}, &fakeChain{}, subgraph.NewRouter(nil), storage.NewMemory(), nil, nil, nil)
	if err := runner.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "no data sources") {
		t.Fatalf("expected missing data source error, got %v", err)
	}
}

var timeZero = time.Unix(0, 0)

func TestReplay(t *testing.T) {
	router := newTestRouter(t)
	store := storage.NewMemory()
	env := router.Env(store, nil, nil)

	created := buildLogRecord(56, createdLog(102, 0, childAddr), 1, timeZero)
	pinged := buildLogRecord(56, pingLog(103, 0, 5), 2, timeZero)
	broken := pinged
	broken.LogIndex = 1
	broken.Data = "0x01"
	unrelated := pinged
	unrelated.Address = common.HexToAddress("0x00000000000000000000000000000000000000ee").Hex()

	var lines []string
	for _, rec := range []model.LogRecord{created, pinged, broken, unrelated} {
		lines = append(lines, mustJSON(t, rec))
	}
	lines = append(lines, "{not json", `{"block_number": 1}`)

	errs := &collectSink{}
	stats, err := Replay(context.Background(), strings.NewReader(strings.Join(lines, "\n")), router, env, errs, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if stats.Total != 6 || stats.Handled != 2 || stats.Skipped != 1 || stats.Failed != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(errs.values) != 3 {
		t.Fatalf("expected 3 decode errors, got %d", len(errs.values))
	}
	first := errs.values[0].(model.DecodeError)
	if first.Line != 3 || first.Stage != model.StageDecode || first.LogIndex != 1 || first.Topic0 == "" {
		t.Fatalf("unexpected decode error %+v", first)
	}
	if got := len(loadPings(t, store)); got != 1 {
		t.Fatalf("expected 1 ping, got %d", got)
	}
}

func TestReplayAbortsOnHandlerError(t *testing.T) {
	router := newTestRouter(t)
	store := failingStore{Store: storage.NewMemory()}
	env := router.Env(store, nil, nil)
	lines := mustJSON(t, buildLogRecord(56, createdLog(102, 0, childAddr), 1, timeZero)) + "\n" +
		mustJSON(t, buildLogRecord(56, pingLog(103, 0, 5), 2, timeZero))
	if _, err := Replay(context.Background(), strings.NewReader(lines), router, env, nil, nil); err == nil {
		t.Fatalf("expected store failure to abort")
	}
}

type collectSink struct {
	values []any
}

func (c *collectSink) Append(values ...any) error {
	c.values = append(c.values, values...)
	return nil
}

type failingStore struct {
	storage.Store
}

func (failingStore) Put(context.Context, string, string, []byte) error {
	return errors.New("disk full")
}

func mustJSON(t *testing.T, rec model.LogRecord) string {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}
