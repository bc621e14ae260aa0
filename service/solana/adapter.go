package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// realRPCClient adapts the solana-go clients to our RPCClient interface.
// Signature history goes through the typed rpc client; getTransaction goes
// through the underlying JSON-RPC client so the body can be kept as sent.
type realRPCClient struct {
	client *rpc.Client
	raw    jsonrpc.RPCClient
}

// NewRPCClient creates a new RPCClient for the given endpoint.
// For premium RPC endpoints that require API keys, include the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
func NewRPCClient(rpcURL string) RPCClient {
	return &realRPCClient{
		client: rpc.New(rpcURL),
		raw:    jsonrpc.NewClient(rpcURL),
	}
}

func (r *realRPCClient) GetSignaturesForAddress(
	ctx context.Context,
	address solana.PublicKey,
	opts *rpc.GetSignaturesForAddressOpts,
) ([]*rpc.TransactionSignature, error) {
	return r.client.GetSignaturesForAddressWithOpts(ctx, address, opts)
}

// GetParsedTransaction rejects any non-2xx reply, even one whose body
// decodes as a JSON-RPC envelope.
func (r *realRPCClient) GetParsedTransaction(
	ctx context.Context,
	signature solana.Signature,
) (*TransactionEnvelope, error) {
	params := []interface{}{
		signature.String(),
		map[string]any{
			"encoding":                       solana.EncodingJSONParsed,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var out *TransactionEnvelope
	err := r.raw.CallWithCallback(ctx, "getTransaction", params, func(req *http.Request, resp *http.Response) error {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return jsonrpc.NewHTTPError(resp.StatusCode,
				fmt.Errorf("getTransaction on %s: unexpected status %d", req.URL.Host, resp.StatusCode))
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read getTransaction response: %w", err)
		}

		var decoded *jsonrpc.RPCResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("failed to decode getTransaction response: %w", err)
		}
		if decoded == nil {
			return fmt.Errorf("getTransaction: empty response body")
		}
		out = &TransactionEnvelope{RPCResponse: decoded, Body: bytes.TrimSpace(body)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
