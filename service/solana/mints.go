package solana

import (
	"encoding/json"
	"slices"
)

// MintSet is a set of token mint addresses.
type MintSet map[string]struct{}

// NewMintSet creates a MintSet holding the given mints.
func NewMintSet(mints ...string) MintSet {
	set := make(MintSet, len(mints))
	set.Add(mints...)
	return set
}

// Add inserts one or more mints.
func (s MintSet) Add(mints ...string) {
	for _, m := range mints {
		s[m] = struct{}{}
	}
}

// Has reports whether mint is in the set.
func (s MintSet) Has(mint string) bool {
	_, ok := s[mint]
	return ok
}

// Union adds every mint of other to s.
func (s MintSet) Union(other MintSet) {
	for m := range other {
		s[m] = struct{}{}
	}
}

// Sorted returns the mints in lexical order. It never returns nil so the
// result always serializes as a JSON array.
func (s MintSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// ExtractMints returns every distinct mint referenced by record.
//
// Mints are collected from pre and post token balances and from the
// parsed info of top-level and inner instructions. Instructions whose
// parsed payload is not an object (programs the node cannot decode) are
// skipped. A nil record yields an empty set.
func ExtractMints(record *TransactionRecord) MintSet {
	mints := NewMintSet()
	if record == nil {
		return mints
	}

	if record.Meta != nil {
		for _, b := range record.Meta.PreTokenBalances {
			if b.Mint != nil {
				mints.Add(*b.Mint)
			}
		}
		for _, b := range record.Meta.PostTokenBalances {
			if b.Mint != nil {
				mints.Add(*b.Mint)
			}
		}
	}

	if record.Transaction == nil {
		return mints
	}

	msg := record.Transaction.Message
	for _, ix := range msg.Instructions {
		if mint, ok := instructionMint(ix); ok {
			mints.Add(mint)
		}
	}
	for _, inner := range msg.InnerInstructions {
		for _, ix := range inner.Instructions {
			if mint, ok := instructionMint(ix); ok {
				mints.Add(mint)
			}
		}
	}

	return mints
}

// instructionMint returns parsed.info.mint when the instruction carries a
// structured parsed payload with a string mint. Other keys of the payload,
// including type, are not looked at.
func instructionMint(ix ParsedInstruction) (string, bool) {
	if !isJSONObject(ix.Parsed) {
		return "", false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(ix.Parsed, &payload); err != nil {
		return "", false
	}
	if !isJSONObject(payload["info"]) {
		return "", false
	}

	var info map[string]json.RawMessage
	if err := json.Unmarshal(payload["info"], &info); err != nil {
		return "", false
	}
	raw, ok := info["mint"]
	if !ok {
		return "", false
	}

	var mint string
	if err := json.Unmarshal(raw, &mint); err != nil {
		return "", false
	}
	return mint, true
}
