package model

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DonationRecord describes a stealth address that belongs to the receiver and holds funds.
type DonationRecord struct {
	ID             string
	StealthAddress common.Address
	Amount         *big.Int
	Timestamp      time.Time
	Swept          bool
	Memo           string
	BlockNumber    uint64
	TxHash         common.Hash
}

// DonationID returns the deterministic record id for an announcement, so
// rescanning the same range yields the same ids.
func DonationID(txHash common.Hash, stealthAddress common.Address) string {
	return strings.ToLower(txHash.Hex()) + "-" + strings.ToLower(stealthAddress.Hex())
}
