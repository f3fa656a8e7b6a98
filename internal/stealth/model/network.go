package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

type Network string

var (
	Mainnet Network = "mainnet"
	Sepolia Network = "sepolia"
	Holesky Network = "holesky"
	Base    Network = "base"
)

var baseChainID = big.NewInt(8453)

// ChainID returns the EIP-155 chain id of a known network.
func (n Network) ChainID() (*big.Int, error) {
	switch n {
	case Mainnet:
		return params.MainnetChainConfig.ChainID, nil
	case Sepolia:
		return params.SepoliaChainConfig.ChainID, nil
	case Holesky:
		return params.HoleskyChainConfig.ChainID, nil
	case Base:
		return baseChainID, nil
	default:
		return nil, fmt.Errorf("unknown network %q", string(n))
	}
}
