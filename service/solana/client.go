package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewbouras/insiders/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	// GetParsedTransaction calls getTransaction with jsonParsed encoding
	// and maxSupportedTransactionVersion 0, returning the full envelope.
	GetParsedTransaction(
		ctx context.Context,
		signature solana.Signature,
	) (*TransactionEnvelope, error)
}

// TransactionEnvelope is a decoded getTransaction response together with
// the response body exactly as the node sent it. Body may be empty, in
// which case the decoded response is re-encoded when a copy is needed.
type TransactionEnvelope struct {
	*jsonrpc.RPCResponse
	Body json.RawMessage
}

// Client lists signature history and fetches parsed transactions.
// It wraps the RPC client with domain-specific operations.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", rpc host)
}

// NewClient creates a new Solana client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// RecentSignatures returns a single page of at most limit signatures,
// newest first. Older history is not requested.
func (c *Client) RecentSignatures(ctx context.Context, wallet solana.PublicKey, limit int) ([]SignatureSummary, error) {
	return c.signaturePage(ctx, wallet, limit, nil)
}

// ListSignatures walks the full signature history of wallet, newest first.
// Each request after the first starts before the last signature of the
// previous page. Listing stops on an empty page or on a page shorter than
// pageSize.
func (c *Client) ListSignatures(ctx context.Context, wallet solana.PublicKey, pageSize int) ([]SignatureSummary, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	var all []SignatureSummary
	var before *solana.Signature
	for page := 1; ; page++ {
		batch, err := c.signaturePage(ctx, wallet, pageSize, before)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)

		c.logger.DebugContext(ctx, "fetched signature page",
			"wallet", wallet.String(),
			"page", page,
			"count", len(batch),
			"total", len(all),
		)

		if len(batch) < pageSize {
			break
		}

		last, err := solana.SignatureFromBase58(batch[len(batch)-1].Signature)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor signature %q: %w", batch[len(batch)-1].Signature, err)
		}
		before = &last
	}

	c.logger.InfoContext(ctx, "listed signature history",
		"wallet", wallet.String(),
		"count", len(all),
	)
	return all, nil
}

func (c *Client) signaturePage(
	ctx context.Context,
	wallet solana.PublicKey,
	limit int,
	before *solana.Signature,
) ([]SignatureSummary, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	}
	if before != nil {
		opts.Before = *before
	}

	c.logger.DebugContext(ctx, "calling GetSignaturesForAddress",
		"wallet", wallet.String(),
		"limit", limit,
		"before", before,
	)

	start := time.Now()
	sigs, err := c.rpc.GetSignaturesForAddress(ctx, wallet, opts)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("getSignaturesForAddress", status, c.endpoint, duration)
		if err == nil {
			c.metrics.RecordRPCSignaturesPerCall(c.endpoint, float64(len(sigs)))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress %s: %w", wallet, err)
	}

	out := make([]SignatureSummary, 0, len(sigs))
	for _, sig := range sigs {
		if sig == nil {
			continue
		}
		out = append(out, signatureToDomain(sig))
	}
	return out, nil
}

// FetchTransaction retrieves a fully parsed transaction.
// A missing or null result is not an error: the returned response has a
// nil Record and the caller treats it as zero mints.
func (c *Client) FetchTransaction(ctx context.Context, signature string) (*TransactionResponse, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	start := time.Now()
	resp, err := c.rpc.GetParsedTransaction(ctx, sig)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil || (resp != nil && resp.RPCResponse != nil && resp.Error != nil) {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("getTransaction", status, c.endpoint, duration)
	}

	if err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", signature, err)
	}
	if resp == nil || resp.RPCResponse == nil {
		return nil, fmt.Errorf("getTransaction %s: empty response", signature)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", signature, resp.Error)
	}

	raw := resp.Body
	if len(raw) == 0 {
		if raw, err = json.Marshal(resp.RPCResponse); err != nil {
			return nil, fmt.Errorf("failed to encode response for %s: %w", signature, err)
		}
	}

	out := &TransactionResponse{
		Signature: signature,
		Raw:       raw,
	}
	if isNullResult(json.RawMessage(resp.Result)) {
		c.logger.DebugContext(ctx, "transaction unavailable",
			"signature", signature,
		)
		return out, nil
	}

	var record TransactionRecord
	if err := json.Unmarshal(resp.Result, &record); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", signature, err)
	}
	out.Record = &record
	return out, nil
}

// signatureToDomain converts an RPC TransactionSignature to our domain SignatureSummary.
func signatureToDomain(sig *rpc.TransactionSignature) SignatureSummary {
	summary := SignatureSummary{
		Signature: sig.Signature.String(),
		Slot:      sig.Slot,
		Err:       sig.Err,
	}
	if sig.BlockTime != nil {
		bt := int64(*sig.BlockTime)
		summary.BlockTime = &bt
	}
	return summary
}
