package nats

import (
	"time"

	"github.com/andrewbouras/insiders/service/cache"
)

// MintEvent announces a newly cached transaction and the mints it touched.
// It is published to the subject "mints.{wallet_address}" in JetStream.
type MintEvent struct {
	Signature     string   `json:"signature"`
	WalletAddress string   `json:"wallet_address"`
	BlockTime     *int64   `json:"block_time"` // unix seconds, nil if unknown
	Mints         []string `json:"mints"`

	// Metadata
	RunID       string    `json:"run_id"`
	PublishedAt time.Time `json:"published_at"`
}

// NewMintEvent builds the event for a cache entry written during run runID.
func NewMintEvent(runID, wallet, signature string, entry cache.Entry) *MintEvent {
	mints := entry.Mints
	if mints == nil {
		mints = []string{}
	}
	return &MintEvent{
		Signature:     signature,
		WalletAddress: wallet,
		BlockTime:     entry.BlockTime,
		Mints:         mints,
		RunID:         runID,
		PublishedAt:   time.Now().UTC(),
	}
}

// Subject returns the JetStream subject the event is published to.
func (e *MintEvent) Subject() string {
	return SubjectPrefix + e.WalletAddress
}
