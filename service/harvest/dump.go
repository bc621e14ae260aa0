package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/andrewbouras/insiders/service/solana"
)

// Output file names written by WriteDump.
const (
	SignaturesFile   = "signatures.json"
	TransactionsFile = "transactions.json"
	MintsFile        = "mints.json"
)

// DumpResult holds everything gathered for one wallet's full history.
type DumpResult struct {
	Wallet       string
	Signatures   []string          // newest first
	Transactions []json.RawMessage // one JSON-RPC envelope per signature, same order
	Mints        solana.MintSet
	Unavailable  int
}

// Dump walks the entire signature history of wallet, fetches every
// transaction, and unions the mints of all of them. Unavailable
// transactions are kept in Transactions as returned by the node.
func (h *Harvester) Dump(ctx context.Context, wallet string, pageSize int) (*DumpResult, error) {
	pubkey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", wallet, err)
	}

	logger := h.logger.With("run_id", uuid.NewString(), "flow", "dump", "wallet", wallet)

	summaries, err := h.solana.ListSignatures(ctx, pubkey, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures for %s: %w", wallet, err)
	}
	fmt.Fprintf(h.progress, "Total signatures found: %d\n", len(summaries))

	result := &DumpResult{
		Wallet:       wallet,
		Signatures:   make([]string, 0, len(summaries)),
		Transactions: make([]json.RawMessage, 0, len(summaries)),
		Mints:        solana.NewMintSet(),
	}

	for i, summary := range summaries {
		result.Signatures = append(result.Signatures, summary.Signature)

		resp, err := h.solana.FetchTransaction(ctx, summary.Signature)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transaction %s: %w", summary.Signature, err)
		}
		result.Transactions = append(result.Transactions, resp.Raw)

		mints := solana.ExtractMints(resp.Record)
		result.Mints.Union(mints)

		if !resp.Available() {
			result.Unavailable++
		}
		if h.metrics != nil {
			h.metrics.RecordTransactionFetched(wallet, "dump")
			h.metrics.RecordMintsExtracted("dump", len(mints))
			if !resp.Available() {
				h.metrics.RecordTransactionUnavailable(wallet)
			}
		}

		logger.DebugContext(ctx, "fetched transaction",
			"signature", summary.Signature,
			"index", i,
			"mints", len(mints),
		)
	}

	fmt.Fprintf(h.progress, "Total unique mints found: %d\n", len(result.Mints))
	logger.InfoContext(ctx, "dump complete",
		"signatures", len(result.Signatures),
		"unavailable", result.Unavailable,
		"mints", len(result.Mints),
	)
	return result, nil
}

// WriteDump writes the three dump artifacts into dir, overwriting any
// previous run.
func WriteDump(dir string, result *DumpResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}

	signatures := result.Signatures
	if signatures == nil {
		signatures = []string{}
	}
	transactions := result.Transactions
	if transactions == nil {
		transactions = []json.RawMessage{}
	}

	files := []struct {
		name string
		v    any
	}{
		{SignaturesFile, map[string][]string{"signatures": signatures}},
		{TransactionsFile, transactions},
		{MintsFile, map[string][]string{"mints": result.Mints.Sorted()}},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
