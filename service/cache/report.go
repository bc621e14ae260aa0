package cache

import (
	"cmp"
	"slices"
)

// WrappedSOLMint is excluded from reports unless explicitly requested.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// ReportRow is one (signature, mint) pair of the flattened cache.
type ReportRow struct {
	Signature string `json:"signature"`
	Mint      string `json:"mint"`
	BlockTime *int64 `json:"blockTime"`
	Timestamp *int64 `json:"timestamp"` // milliseconds; nil when BlockTime is nil
}

// ReportOptions controls Report.
type ReportOptions struct {
	IncludeWrappedSOL bool
}

// Report flattens the cache into one row per mint, newest first.
// Rows without a block time sort last; ties break on signature then mint.
func Report(f *File, opts ReportOptions) []ReportRow {
	rows := make([]ReportRow, 0, len(f.Transactions))
	for sig, entry := range f.Transactions {
		for _, mint := range entry.Mints {
			if mint == WrappedSOLMint && !opts.IncludeWrappedSOL {
				continue
			}
			row := ReportRow{
				Signature: sig,
				Mint:      mint,
				BlockTime: entry.BlockTime,
			}
			if entry.BlockTime != nil {
				ms := *entry.BlockTime * 1000
				row.Timestamp = &ms
			}
			rows = append(rows, row)
		}
	}

	slices.SortFunc(rows, func(a, b ReportRow) int {
		switch {
		case a.BlockTime == nil && b.BlockTime != nil:
			return 1
		case a.BlockTime != nil && b.BlockTime == nil:
			return -1
		case a.BlockTime != nil && b.BlockTime != nil && *a.BlockTime != *b.BlockTime:
			return cmp.Compare(*b.BlockTime, *a.BlockTime)
		}
		if c := cmp.Compare(a.Signature, b.Signature); c != 0 {
			return c
		}
		return cmp.Compare(a.Mint, b.Mint)
	})
	return rows
}
