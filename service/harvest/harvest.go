// Package harvest runs the two mint discovery flows: the incremental sync
// over a set of wallets backed by the cache file, and the full history
// dump of a single wallet.
package harvest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/andrewbouras/insiders/service/cache"
	"github.com/andrewbouras/insiders/service/metrics"
	natspkg "github.com/andrewbouras/insiders/service/nats"
	"github.com/andrewbouras/insiders/service/solana"
)

// SolanaClientInterface defines the Solana operations needed by the flows.
// This allows for easy mocking in tests.
type SolanaClientInterface interface {
	RecentSignatures(ctx context.Context, wallet solanago.PublicKey, limit int) ([]solana.SignatureSummary, error)
	ListSignatures(ctx context.Context, wallet solanago.PublicKey, pageSize int) ([]solana.SignatureSummary, error)
	FetchTransaction(ctx context.Context, signature string) (*solana.TransactionResponse, error)
}

// PublisherInterface defines the NATS publishing operations needed by the sync.
type PublisherInterface interface {
	PublishMints(ctx context.Context, event *natspkg.MintEvent) error
}

// Harvester holds the dependencies of both flows.
type Harvester struct {
	solana    SolanaClientInterface
	publisher PublisherInterface // optional
	metrics   *metrics.Metrics   // optional
	logger    *slog.Logger
	progress  io.Writer
}

// NewHarvester creates a Harvester with explicit dependencies.
// publisher and metrics may be nil. Progress lines are written to progress,
// or discarded when it is nil.
func NewHarvester(
	solanaClient SolanaClientInterface,
	publisher PublisherInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
	progress io.Writer,
) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Harvester{
		solana:    solanaClient,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		progress:  progress,
	}
}

// SyncResult summarizes an incremental sync.
type SyncResult struct {
	RunID       string      `json:"run_id"`
	Cache       *cache.File `json:"-"`
	Wallets     int         `json:"wallets"`
	Fetched     int         `json:"fetched"`
	Skipped     int         `json:"skipped"`
	Unavailable int         `json:"unavailable"`
	Added       []string    `json:"added"`
}

// Sync looks at the most recent limit signatures of every wallet and adds a
// cache entry for each signature not already cached. Cached signatures are
// never fetched again. The updated cache is returned in the result; the
// caller persists it.
func (h *Harvester) Sync(ctx context.Context, file *cache.File, wallets []string, limit int) (*SyncResult, error) {
	if file == nil {
		file = cache.New()
	}
	if limit <= 0 {
		return nil, fmt.Errorf("signature limit must be positive, got %d", limit)
	}

	runID := uuid.NewString()
	logger := h.logger.With("run_id", runID, "flow", "sync")
	result := &SyncResult{
		RunID:   runID,
		Cache:   file,
		Wallets: len(wallets),
		Added:   []string{},
	}

	logger.InfoContext(ctx, "starting incremental sync",
		"wallets", len(wallets),
		"limit", limit,
		"cached", file.Len(),
	)

	for _, wallet := range wallets {
		if err := h.syncWallet(ctx, logger, runID, file, wallet, limit, result); err != nil {
			return nil, err
		}
	}

	if h.metrics != nil {
		h.metrics.SetCacheEntries(file.Len())
	}

	logger.InfoContext(ctx, "incremental sync complete",
		"fetched", result.Fetched,
		"skipped", result.Skipped,
		"unavailable", result.Unavailable,
		"cached", file.Len(),
	)
	return result, nil
}

func (h *Harvester) syncWallet(
	ctx context.Context,
	logger *slog.Logger,
	runID string,
	file *cache.File,
	wallet string,
	limit int,
	result *SyncResult,
) error {
	fmt.Fprintf(h.progress, "[*] Processing wallet: %s\n", wallet)

	pubkey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return fmt.Errorf("invalid wallet address %q: %w", wallet, err)
	}

	summaries, err := h.solana.RecentSignatures(ctx, pubkey, limit)
	if err != nil {
		return fmt.Errorf("failed to list signatures for %s: %w", wallet, err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(h.progress, "  [!] No signatures found for this wallet.")
		logger.InfoContext(ctx, "no signatures found", "wallet", wallet)
		return nil
	}

	skipped := 0
	for _, summary := range summaries {
		if file.Has(summary.Signature) {
			skipped++
			continue
		}

		fmt.Fprintf(h.progress, "  [>] Fetching transaction for signature %s\n", summary.Signature)
		resp, err := h.solana.FetchTransaction(ctx, summary.Signature)
		if err != nil {
			return fmt.Errorf("failed to fetch transaction %s: %w", summary.Signature, err)
		}

		entry := entryFor(summary, resp)
		file.Put(summary.Signature, entry)
		result.Fetched++
		result.Added = append(result.Added, summary.Signature)

		if !resp.Available() {
			result.Unavailable++
			logger.WarnContext(ctx, "transaction unavailable, caching with no mints",
				"wallet", wallet,
				"signature", summary.Signature,
			)
		}
		if h.metrics != nil {
			h.metrics.RecordTransactionFetched(wallet, "sync")
			h.metrics.RecordMintsExtracted("sync", len(entry.Mints))
			if !resp.Available() {
				h.metrics.RecordTransactionUnavailable(wallet)
			}
		}

		h.publish(ctx, logger, natspkg.NewMintEvent(runID, wallet, summary.Signature, entry))
	}

	result.Skipped += skipped
	if h.metrics != nil && skipped > 0 {
		h.metrics.RecordTransactionsSkipped(wallet, "cached", skipped)
	}

	logger.InfoContext(ctx, "processed wallet",
		"wallet", wallet,
		"signatures", len(summaries),
		"skipped", skipped,
	)
	return nil
}

// entryFor builds the cache entry for one fetched transaction. The block
// time of the record wins; the summary's block time fills in when the
// record is unavailable or carries none.
func entryFor(summary solana.SignatureSummary, resp *solana.TransactionResponse) cache.Entry {
	var record *solana.TransactionRecord
	if resp != nil {
		record = resp.Record
	}

	blockTime := summary.BlockTime
	if record != nil && record.BlockTime != nil {
		blockTime = record.BlockTime
	}

	return cache.Entry{
		BlockTime: blockTime,
		Mints:     solana.ExtractMints(record).Sorted(),
	}
}

// publish sends the event when a publisher is configured. A failed publish
// is logged and counted, never returned.
func (h *Harvester) publish(ctx context.Context, logger *slog.Logger, event *natspkg.MintEvent) {
	if h.publisher == nil {
		return
	}

	err := h.publisher.PublishMints(ctx, event)
	if h.metrics != nil {
		h.metrics.RecordNATSPublish(event.Subject(), err)
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish mint event",
			"signature", event.Signature,
			"wallet", event.WalletAddress,
			"error", err,
		)
	}
}
