package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewbouras/insiders/service/cache"
	"github.com/andrewbouras/insiders/service/metrics"
	natspkg "github.com/andrewbouras/insiders/service/nats"
	"github.com/andrewbouras/insiders/service/solana"
)

const (
	walletA = "11111111111111111111111111111111"
	walletB = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// mockSolanaClient serves canned signature pages and transactions and
// counts every call.
type mockSolanaClient struct {
	signatures   map[string][]solana.SignatureSummary // by wallet
	transactions map[string]*solana.TransactionRecord // by signature; missing means unavailable
	fetchErr     error

	recentCalls int
	listCalls   int
	fetchCalls  map[string]int
}

func newMockSolanaClient() *mockSolanaClient {
	return &mockSolanaClient{
		signatures:   make(map[string][]solana.SignatureSummary),
		transactions: make(map[string]*solana.TransactionRecord),
		fetchCalls:   make(map[string]int),
	}
}

func (m *mockSolanaClient) RecentSignatures(ctx context.Context, wallet solanago.PublicKey, limit int) ([]solana.SignatureSummary, error) {
	m.recentCalls++
	sigs := m.signatures[wallet.String()]
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs, nil
}

func (m *mockSolanaClient) ListSignatures(ctx context.Context, wallet solanago.PublicKey, pageSize int) ([]solana.SignatureSummary, error) {
	m.listCalls++
	return m.signatures[wallet.String()], nil
}

func (m *mockSolanaClient) FetchTransaction(ctx context.Context, signature string) (*solana.TransactionResponse, error) {
	m.fetchCalls[signature]++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}

	record := m.transactions[signature]
	envelope := map[string]any{"jsonrpc": "2.0", "id": 1, "result": record}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return &solana.TransactionResponse{Signature: signature, Raw: raw, Record: record}, nil
}

func (m *mockSolanaClient) totalFetches() int {
	total := 0
	for _, n := range m.fetchCalls {
		total += n
	}
	return total
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func recordWithMints(blockTime *int64, mints ...string) *solana.TransactionRecord {
	meta := &solana.TransactionMeta{}
	for _, m := range mints {
		meta.PostTokenBalances = append(meta.PostTokenBalances, solana.TokenBalance{Mint: strPtr(m)})
	}
	return &solana.TransactionRecord{BlockTime: blockTime, Meta: meta}
}

func newTestHarvester(client SolanaClientInterface, publisher PublisherInterface, progress io.Writer) *Harvester {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHarvester(client, publisher, metrics.NewMetrics(), logger, progress)
}

func TestSync_FetchesAndCaches(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{
		{Signature: "S1", BlockTime: int64Ptr(1700000002)},
		{Signature: "S2", BlockTime: int64Ptr(1700000001)},
	}
	client.transactions["S1"] = recordWithMints(int64Ptr(1700000002), "B", "A")
	client.transactions["S2"] = recordWithMints(int64Ptr(1700000001))

	var progress bytes.Buffer
	h := newTestHarvester(client, nil, &progress)

	result, err := h.Sync(context.Background(), cache.New(), []string{walletA}, 50)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, []string{"S1", "S2"}, result.Added)
	assert.Equal(t, []string{"A", "B"}, result.Cache.Transactions["S1"].Mints)
	assert.Equal(t, []string{}, result.Cache.Transactions["S2"].Mints)

	assert.Contains(t, progress.String(), "[*] Processing wallet: "+walletA)
	assert.Contains(t, progress.String(), "[>] Fetching transaction for signature S1")
}

func TestSync_SkipsCachedSignatures(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{
		{Signature: "S", BlockTime: int64Ptr(1700000000)},
	}
	client.transactions["S"] = recordWithMints(int64Ptr(1700000000), "A")

	h := newTestHarvester(client, nil, nil)

	first, err := h.Sync(context.Background(), cache.New(), []string{walletA}, 50)
	require.NoError(t, err)
	require.Equal(t, 1, client.totalFetches())

	// Second run with the first run's cache issues zero fetches
	second, err := h.Sync(context.Background(), first.Cache, []string{walletA}, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, client.totalFetches())
	assert.Equal(t, 0, second.Fetched)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 2, client.recentCalls)
}

func TestSync_CachedEntryIsNeverOverwritten(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{{Signature: "S"}}
	client.transactions["S"] = recordWithMints(int64Ptr(5), "NEW")

	file := cache.New()
	file.Put("S", cache.Entry{BlockTime: int64Ptr(1), Mints: []string{"OLD"}})

	h := newTestHarvester(client, nil, nil)
	result, err := h.Sync(context.Background(), file, []string{walletA}, 50)
	require.NoError(t, err)

	assert.Equal(t, []string{"OLD"}, result.Cache.Transactions["S"].Mints)
	assert.Equal(t, 0, client.fetchCalls["S"])
}

func TestSync_BlockTimeFallsBackToSummary(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{
		{Signature: "PRUNED", BlockTime: int64Ptr(1700000000)},
		{Signature: "NOTIME", BlockTime: int64Ptr(1700000001)},
		{Signature: "NEITHER"},
	}
	// PRUNED has no record at all
	client.transactions["NOTIME"] = recordWithMints(nil, "A")

	h := newTestHarvester(client, nil, nil)
	result, err := h.Sync(context.Background(), cache.New(), []string{walletA}, 50)
	require.NoError(t, err)

	pruned := result.Cache.Transactions["PRUNED"]
	require.NotNil(t, pruned.BlockTime)
	assert.Equal(t, int64(1700000000), *pruned.BlockTime)
	assert.Empty(t, pruned.Mints)

	notime := result.Cache.Transactions["NOTIME"]
	require.NotNil(t, notime.BlockTime)
	assert.Equal(t, int64(1700000001), *notime.BlockTime)
	assert.Equal(t, []string{"A"}, notime.Mints)

	assert.Nil(t, result.Cache.Transactions["NEITHER"].BlockTime)
	assert.Equal(t, 2, result.Unavailable)
}

func TestSync_RecordBlockTimeWins(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{{Signature: "S", BlockTime: int64Ptr(1)}}
	client.transactions["S"] = recordWithMints(int64Ptr(2))

	h := newTestHarvester(client, nil, nil)
	result, err := h.Sync(context.Background(), cache.New(), []string{walletA}, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *result.Cache.Transactions["S"].BlockTime)
}

func TestSync_EmptyWalletContinues(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletB] = []solana.SignatureSummary{{Signature: "S"}}
	client.transactions["S"] = recordWithMints(int64Ptr(1), "A")

	var progress bytes.Buffer
	h := newTestHarvester(client, nil, &progress)
	result, err := h.Sync(context.Background(), cache.New(), []string{walletA, walletB}, 50)
	require.NoError(t, err)

	assert.Contains(t, progress.String(), "[!] No signatures found for this wallet.")
	assert.True(t, result.Cache.Has("S"))
	assert.Equal(t, 2, result.Wallets)
}

func TestSync_RespectsLimit(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{{Signature: "S1"}, {Signature: "S2"}, {Signature: "S3"}}

	h := newTestHarvester(client, nil, nil)
	result, err := h.Sync(context.Background(), cache.New(), []string{walletA}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Cache.Len())
	assert.False(t, result.Cache.Has("S3"))
}

func TestSync_FetchErrorAborts(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{{Signature: "S"}}
	client.fetchErr = assert.AnError

	h := newTestHarvester(client, nil, nil)
	_, err := h.Sync(context.Background(), cache.New(), []string{walletA}, 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSync_InvalidWallet(t *testing.T) {
	h := newTestHarvester(newMockSolanaClient(), nil, nil)
	_, err := h.Sync(context.Background(), cache.New(), []string{"not-a-wallet!"}, 50)
	assert.Error(t, err)
}

func TestSync_PublishesNewEntries(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{{Signature: "S1"}, {Signature: "S2"}}
	client.transactions["S1"] = recordWithMints(int64Ptr(10), "A")
	client.transactions["S2"] = recordWithMints(int64Ptr(9), "B")

	file := cache.New()
	file.Put("S2", cache.Entry{})

	publisher := natspkg.NewMockPublisher()
	h := newTestHarvester(client, publisher, nil)
	result, err := h.Sync(context.Background(), file, []string{walletA}, 50)
	require.NoError(t, err)

	events := publisher.GetPublishedEventsForWallet(walletA)
	require.Len(t, events, 1)
	assert.Equal(t, "S1", events[0].Signature)
	assert.Equal(t, []string{"A"}, events[0].Mints)
	assert.Equal(t, result.RunID, events[0].RunID)
}

func TestSync_PublishFailureDoesNotAbort(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{{Signature: "S1"}}
	client.transactions["S1"] = recordWithMints(int64Ptr(10), "A")

	publisher := natspkg.NewMockPublisher()
	publisher.SetPublishError(assert.AnError)

	h := newTestHarvester(client, publisher, nil)
	result, err := h.Sync(context.Background(), cache.New(), []string{walletA}, 50)
	require.NoError(t, err)
	assert.True(t, result.Cache.Has("S1"))
}

func TestDump(t *testing.T) {
	client := newMockSolanaClient()
	client.signatures[walletA] = []solana.SignatureSummary{{Signature: "S1"}, {Signature: "S2"}, {Signature: "S3"}}
	client.transactions["S1"] = recordWithMints(int64Ptr(3), "A", "B")
	client.transactions["S3"] = recordWithMints(int64Ptr(1), "B", "C")

	var progress bytes.Buffer
	h := newTestHarvester(client, nil, &progress)
	result, err := h.Dump(context.Background(), walletA, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, client.listCalls)
	assert.Equal(t, []string{"S1", "S2", "S3"}, result.Signatures)
	assert.Len(t, result.Transactions, 3, "unavailable transactions are kept")
	assert.Equal(t, []string{"A", "B", "C"}, result.Mints.Sorted())
	assert.Equal(t, 1, result.Unavailable)
	assert.Contains(t, progress.String(), "Total signatures found: 3")
	assert.Contains(t, progress.String(), "Total unique mints found: 3")

	dir := t.TempDir()
	require.NoError(t, WriteDump(dir, result))

	data, err := os.ReadFile(filepath.Join(dir, SignaturesFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"signatures": ["S1", "S2", "S3"]}`, string(data))

	data, err = os.ReadFile(filepath.Join(dir, MintsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"mints": ["A", "B", "C"]}`, string(data))

	data, err = os.ReadFile(filepath.Join(dir, TransactionsFile))
	require.NoError(t, err)
	var envelopes []map[string]any
	require.NoError(t, json.Unmarshal(data, &envelopes))
	require.Len(t, envelopes, 3)
	assert.Nil(t, envelopes[1]["result"])
	assert.Equal(t, "2.0", envelopes[0]["jsonrpc"])
}

func TestDump_EmptyHistory(t *testing.T) {
	h := newTestHarvester(newMockSolanaClient(), nil, nil)
	result, err := h.Dump(context.Background(), walletA, 100)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteDump(dir, result))

	data, err := os.ReadFile(filepath.Join(dir, TransactionsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	data, err = os.ReadFile(filepath.Join(dir, MintsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"mints": []}`, string(data))
}
