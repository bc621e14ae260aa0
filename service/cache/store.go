// Package cache persists the signature to mint-set mapping built by the
// incremental sync between runs.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
)

// ErrMalformed is returned by Load when the cache file exists but cannot
// be decoded.
var ErrMalformed = errors.New("malformed cache file")

// Entry is the cached outcome of one transaction. Entries are never
// updated once written.
type Entry struct {
	BlockTime *int64   `json:"blockTime"`
	Mints     []string `json:"mints"`
}

// File is the on-disk layout of the cache.
type File struct {
	Transactions map[string]Entry `json:"transactions"`
}

// New returns an empty cache.
func New() *File {
	return &File{Transactions: make(map[string]Entry)}
}

// Load reads the cache at path. A missing file yields an empty cache.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformed, path, err)
	}
	if f.Transactions == nil {
		f.Transactions = make(map[string]Entry)
	}
	return &f, nil
}

// Save rewrites the whole cache at path as indented JSON.
func Save(path string, f *File) error {
	if f == nil {
		f = New()
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache %s: %w", path, err)
	}
	return nil
}

// Has reports whether signature is already cached.
func (f *File) Has(signature string) bool {
	_, ok := f.Transactions[signature]
	return ok
}

// Put stores entry under signature unless the signature is already
// present. It reports whether the entry was stored.
func (f *File) Put(signature string, entry Entry) bool {
	if f.Transactions == nil {
		f.Transactions = make(map[string]Entry)
	}
	if f.Has(signature) {
		return false
	}
	if entry.Mints == nil {
		entry.Mints = []string{}
	}
	f.Transactions[signature] = entry
	return true
}

// Len returns the number of cached signatures.
func (f *File) Len() int {
	return len(f.Transactions)
}

// Signatures returns the cached signatures in lexical order.
func (f *File) Signatures() []string {
	out := make([]string, 0, len(f.Transactions))
	for sig := range f.Transactions {
		out = append(out, sig)
	}
	slices.Sort(out)
	return out
}

// DistinctMints returns every mint referenced by any entry, sorted.
func (f *File) DistinctMints() []string {
	seen := make(map[string]struct{})
	for _, e := range f.Transactions {
		for _, m := range e.Mints {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
