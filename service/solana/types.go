package solana

import (
	"bytes"
	"encoding/json"
)

// SignatureSummary is one entry of a getSignaturesForAddress page.
// This is our domain model, independent of the RPC response format.
type SignatureSummary struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"` // nil if the node did not report one
	Err       any    `json:"err"`       // nil if the transaction succeeded
}

// TransactionResponse is the outcome of a getTransaction lookup.
// Raw holds the JSON-RPC envelope as the node sent it;
// Record is nil when the node returned no result (pruned, invalid, or not
// yet finalized).
type TransactionResponse struct {
	Signature string
	Raw       json.RawMessage
	Record    *TransactionRecord
}

// Available reports whether the node returned a transaction record.
func (r *TransactionResponse) Available() bool {
	return r != nil && r.Record != nil
}

// TransactionRecord is the subset of a jsonParsed getTransaction result
// that mint discovery looks at.
type TransactionRecord struct {
	Slot        uint64             `json:"slot"`
	BlockTime   *int64             `json:"blockTime"`
	Meta        *TransactionMeta   `json:"meta"`
	Transaction *ParsedTransaction `json:"transaction"`
}

// TransactionMeta carries the token balance changes of a transaction.
type TransactionMeta struct {
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
}

// TokenBalance is a pre/post token balance entry. Mint is nil when the
// entry does not carry one.
type TokenBalance struct {
	AccountIndex uint64  `json:"accountIndex"`
	Mint         *string `json:"mint"`
	Owner        string  `json:"owner,omitempty"`
}

// ParsedTransaction is the jsonParsed transaction body.
type ParsedTransaction struct {
	Signatures []string      `json:"signatures"`
	Message    ParsedMessage `json:"message"`
}

// ParsedMessage holds the top-level and inner instructions.
type ParsedMessage struct {
	Instructions      []ParsedInstruction `json:"instructions"`
	InnerInstructions []InnerInstructions `json:"innerInstructions"`
}

// InnerInstructions is one group of instructions invoked by the
// instruction at Index.
type InnerInstructions struct {
	Index        int                 `json:"index"`
	Instructions []ParsedInstruction `json:"instructions"`
}

// ParsedInstruction is a single instruction. Parsed is kept raw because
// natively parsed programs return an object while others return an opaque
// string.
type ParsedInstruction struct {
	Program   string          `json:"program,omitempty"`
	ProgramID string          `json:"programId,omitempty"`
	Parsed    json.RawMessage `json:"parsed,omitempty"`
}

// isJSONObject reports whether raw encodes a JSON object.
func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// isNullResult reports whether a result payload is missing or JSON null.
func isNullResult(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
