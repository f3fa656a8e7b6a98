// Package notify delivers donation summaries to the key owner.
package notify

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// Title heads every donation notification.
const Title = "New Donation Received!"

// FormatEther renders wei as ETH with six decimals.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return eth.Text('f', 6)
}

// Message summarizes count donations worth total wei.
func Message(count int, total *big.Int) string {
	return fmt.Sprintf("%d donation(s) totaling %s ETH", count, FormatEther(total))
}
