package model

import "github.com/ethereum/go-ethereum/common"

// Announcement is a decoded ERC-5564 announcement log entry.
type Announcement struct {
	BlockNumber     uint64
	TxHash          common.Hash
	StealthAddress  common.Address
	EphemeralPubKey PublicKey
	// ViewTag is the sender-published tag taken from the metadata. It is only
	// meaningful when HasViewTag is set.
	ViewTag    byte
	HasViewTag bool
	Metadata   []byte
}
